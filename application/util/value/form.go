package value

import (
	"bytes"

	"github.com/pkg/errors"

	"silq/application/util/uri"
	"silq/lib/fault"
)

// MarshalForm encodes a flat map as application/x-www-form-urlencoded.
// Null entries are skipped. Nested lists or maps are rejected.
func MarshalForm(v any) ([]byte, error) {
	n, err := Normalize(v)
	if err != nil {
		return nil, fault.Wrap(fault.Serialization, err, "encoding form")
	}

	m, ok := n.(*Map)
	if !ok {
		return nil, fault.Newf(fault.Serialization, "encoding form: top level must be a map, got %s", kindName(n))
	}

	buf := new(bytes.Buffer)
	for k, elem := range m.All() {
		if elem == nil {
			continue
		}

		switch elem.(type) {
		case []any, *Map:
			return nil, fault.Wrap(fault.Serialization,
				errors.Wrapf(ErrUnsupportedType, "key %q holds a %s", k, kindName(elem)), "encoding form")
		}

		text, err := Text(elem)
		if err != nil {
			return nil, fault.Wrapf(fault.Serialization, err, "encoding form: key %q", k)
		}

		if buf.Len() > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(uri.EscapeForm(k))
		buf.WriteByte('=')
		buf.WriteString(uri.EscapeForm(text))
	}

	return buf.Bytes(), nil
}

func kindName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64:
		return "integer"
	case float64:
		return "float"
	case string:
		return "string"
	case []any:
		return "list"
	case *Map:
		return "map"
	}
	return "unknown"
}
