package semantic

import (
	"iter"
	"slices"
	"strings"

	"silq/application/http"
)

type Field struct{ Name, Value string }

// Headers is an ordered multimap of header fields.
// Names are matched case-insensitively but kept as given,
// and every field line stays a separate entry in receipt order.
type Headers struct{ fields []Field }

// HeadersFrom creates semantic header from raw fields.
func HeadersFrom(fields []http.Field) Headers {
	clone := make([]Field, 0, len(fields))
	for _, field := range fields {
		clone = append(clone, Field{Name: string(field.Name), Value: string(field.Value)})
	}
	return Headers{fields: clone}
}

// Fields returns all the fields in order.
func (h *Headers) Fields() []Field {
	return slices.Clone(h.fields)
}

// All iterates over the fields in order.
func (h *Headers) All() iter.Seq2[int, Field] {
	return slices.All(h.fields)
}

func (h *Headers) Len() int { return len(h.fields) }

func (h *Headers) ToRawFields() []http.Field {
	raw := make([]http.Field, 0, len(h.fields))
	for _, field := range h.fields {
		raw = append(raw, http.Field{Name: []byte(field.Name), Value: []byte(field.Value)})
	}
	return raw
}

// Get assumes the field is a singleton field.
// Even if key has multiple values, it will only return the first element of values.
// For list-based field, use [Headers.Values].
func (h *Headers) Get(key string) (value string, ok bool) {
	for _, field := range h.fields {
		if strings.EqualFold(field.Name, key) {
			return field.Value, true
		}
	}
	return "", false
}

// Values returns every value of key in receipt order.
func (h *Headers) Values(key string) []string {
	values := make([]string, 0)
	for _, field := range h.fields {
		if strings.EqualFold(field.Name, key) {
			values = append(values, field.Value)
		}
	}
	return values
}

func (h *Headers) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Set assumes the field is a singleton field.
// The first occurrence of key takes value, and the rest are removed.
// If key is absent, the field is appended.
// For list-based field, use [Headers.Add].
func (h *Headers) Set(key, value string) {
	idx := slices.IndexFunc(h.fields, func(f Field) bool { return strings.EqualFold(f.Name, key) })
	if idx < 0 {
		h.Add(key, value)
		return
	}

	h.fields[idx] = Field{Name: key, Value: value}
	h.fields = append(h.fields[:idx+1], slices.DeleteFunc(h.fields[idx+1:], func(f Field) bool {
		return strings.EqualFold(f.Name, key)
	})...)
}

func (h *Headers) Add(key, value string) {
	h.fields = append(h.fields, Field{Name: key, Value: value})
}

func (h *Headers) Del(key string) {
	h.fields = slices.DeleteFunc(h.fields, func(f Field) bool {
		return strings.EqualFold(f.Name, key)
	})
}
