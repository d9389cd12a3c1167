// Package uri implements Uniform Resource Identifier (URI) parsing
// and the percent-encodings the client needs for cookies and forms.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986
//
// - https://url.spec.whatwg.org/#application/x-www-form-urlencoded
package uri
