// Package fault defines the error kinds surfaced by the engine.
//
// Every fallible operation returns an [*Error] carrying a [Kind],
// a human readable context and, when there is one, the originating cause.
// Callers match kinds with errors.Is:
//
//	if errors.Is(err, fault.BodyConsumed) { ... }
package fault

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Kind uint8

const (
	_ Kind = iota
	Configuration
	URI
	SecurityPolicy
	Header
	Certificate
	Serialization
	Deserialization
	Encoding
	Transport
	BodyConsumed
	InvalidState
)

var kindNames = [...]string{
	Configuration:   "configuration error",
	URI:             "uri error",
	SecurityPolicy:  "security policy error",
	Header:          "header error",
	Certificate:     "certificate error",
	Serialization:   "serialization error",
	Deserialization: "deserialization error",
	Encoding:        "encoding error",
	Transport:       "transport error",
	BodyConsumed:    "body consumed error",
	InvalidState:    "invalid state error",
}

var _ error = Kind(0)

// Error lets a Kind be used directly as an errors.Is target.
func (k Kind) Error() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown error"
}

type Error struct {
	Kind    Kind
	Context string
	Cause   error
}

var _ error = (*Error)(nil)

// Error formats as "kind: context: cause", omitting empty parts.
func (e *Error) Error() string {
	parts := []string{e.Kind.Error()}
	if e.Context != "" {
		parts = append(parts, e.Context)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func New(kind Kind, context string) error {
	return &Error{Kind: kind, Context: context}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Context: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and context to err. A nil err yields nil.
func Wrap(kind Kind, err error, context string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Context: context, Cause: err}
}

func Wrapf(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Context: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf reports the kind of the first [*Error] in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
