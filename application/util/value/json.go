package value

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"silq/lib/fault"
)

// MarshalJSON encodes v as compact JSON.
// *Map keeps insertion order. Go maps are written with sorted keys.
func MarshalJSON(v any) ([]byte, error) {
	n, err := Normalize(v)
	if err != nil {
		return nil, fault.Wrap(fault.Serialization, err, "encoding json")
	}

	buf := new(bytes.Buffer)
	if err := writeJSON(buf, n); err != nil {
		return nil, fault.Wrap(fault.Serialization, err, "encoding json")
	}

	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	switch v := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case float64:
		b, err := json.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "float")
		}
		buf.Write(b)
	case string:
		return writeJSONString(buf, v)
	case []any:
		buf.WriteByte('[')
		for idx, elem := range v {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Map:
		buf.WriteByte('{')
		idx := 0
		for k, elem := range v.All() {
			if idx > 0 {
				buf.WriteByte(',')
			}
			idx++
			if err := writeJSONString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return errors.Wrapf(ErrUnsupportedType, "%T", v)
	}

	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "string")
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// UnmarshalJSON decodes data into the canonical representation.
// Objects become *Map in document order. Numbers without a fraction or
// exponent that fit in int64 become int64, everything else float64.
func UnmarshalJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSON(dec)
	if err != nil {
		return nil, fault.Wrap(fault.Deserialization, err, "decoding json")
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fault.New(fault.Deserialization, "decoding json: trailing data after value")
	}

	return v, nil
}

func decodeJSON(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch tok := tok.(type) {
	case json.Delim:
		switch tok {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, errors.Errorf("object key %v is not a string", keyTok)
				}
				elem, err := decodeJSON(dec)
				if err != nil {
					return nil, errors.Wrapf(err, "key %q", key)
				}
				m.Set(key, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			list := make([]any, 0)
			for dec.More() {
				elem, err := decodeJSON(dec)
				if err != nil {
					return nil, errors.Wrapf(err, "index %d", len(list))
				}
				list = append(list, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, errors.Errorf("unexpected delimiter %q", tok)
	case json.Number:
		return decodeNumber(tok)
	case string, bool, nil:
		return tok, nil
	}

	return nil, errors.Errorf("unexpected token %v", tok)
}

func decodeNumber(num json.Number) (any, error) {
	if i, err := num.Int64(); err == nil {
		return i, nil
	}

	f, err := num.Float64()
	if err != nil {
		return nil, errors.Wrapf(err, "number %s", num)
	}
	return f, nil
}
