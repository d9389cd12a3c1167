// Package status names HTTP status codes and their reason phrases.
package status

import "fmt"

type Status struct {
	Code         uint
	ReasonPhrase string
}

func (s Status) String() string { return fmt.Sprintf("%d %s", s.Code, s.ReasonPhrase) }

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15
var reasons = map[uint]string{
	100: "Continue",
	101: "Switching Protocols",
	102: "Processing",  // RFC 2518
	103: "Early Hints", // RFC 8297

	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",

	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	307: "Temporary Redirect",
	308: "Permanent Redirect",

	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Content Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	416: "Range Not Satisfiable",
	417: "Expectation Failed",
	421: "Misdirected Request",
	422: "Unprocessable Content",
	426: "Upgrade Required",
	429: "Too Many Requests", // RFC 6585

	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

var (
	Continue            = known(100)
	SwitchingProtocols  = known(101)
	OK                  = known(200)
	Created             = known(201)
	NoContent           = known(204)
	NotModified         = known(304)
	BadRequest          = known(400)
	NotFound            = known(404)
	URITooLong          = known(414)
	InternalServerError = known(500)
	NotImplemented      = known(501)
	ServiceUnavailable  = known(503)
)

func known(code uint) Status {
	st, ok := FromCode(code)
	if !ok {
		panic(fmt.Sprintf("status: no reason phrase for %d", code))
	}
	return st
}

// FromCode looks up the registered reason phrase of code.
// Unregistered codes come back with an empty phrase and false.
func FromCode(code uint) (Status, bool) {
	reason, ok := reasons[code]
	return Status{Code: code, ReasonPhrase: reason}, ok
}

// Class is the first digit of a status code.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15-4
type Class uint

const (
	ClassInformational Class = 1 + iota
	ClassSuccessful
	ClassRedirection
	ClassClientError
	ClassServerError
)

// Class returns 0 for codes outside 100-599.
func (s Status) Class() Class {
	if s.Code < 100 || s.Code > 599 {
		return 0
	}
	return Class(s.Code / 100)
}

func (s Status) IsInformational() bool { return s.Class() == ClassInformational }
func (s Status) IsSuccessful() bool    { return s.Class() == ClassSuccessful }
func (s Status) IsRedirection() bool   { return s.Class() == ClassRedirection }
func (s Status) IsClientError() bool   { return s.Class() == ClassClientError }
func (s Status) IsServerError() bool   { return s.Class() == ClassServerError }
