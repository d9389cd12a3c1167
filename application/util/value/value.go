package value

import (
	"math"
	"reflect"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedType = errors.New("type can't be represented")
	ErrInvalidUTF8     = errors.New("string is not valid UTF-8")
	ErrNonFiniteFloat  = errors.New("float is not finite")
)

// Normalize converts v into its canonical representation.
func Normalize(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, float64:
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, ErrNonFiniteFloat
		}
		return v, nil
	case string:
		if !utf8.ValidString(v) {
			return nil, ErrInvalidUTF8
		}
		return v, nil
	case *Map:
		out := NewMap()
		for k, elem := range v.All() {
			n, err := Normalize(elem)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}
			out.Set(k, n)
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(v))
		for idx, elem := range v {
			n, err := Normalize(elem)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", idx)
			}
			out = append(out, n)
		}
		return out, nil
	case []byte:
		return nil, errors.Wrap(ErrUnsupportedType, "binary data")
	}

	return normalizeReflect(reflect.ValueOf(v))
}

func normalizeReflect(rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, errors.Wrapf(ErrUnsupportedType, "integer %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return Normalize(rv.Float())
	case reflect.String:
		return Normalize(rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, errors.Wrap(ErrUnsupportedType, "binary data")
		}
		out := make([]any, 0, rv.Len())
		for idx := range rv.Len() {
			n, err := Normalize(rv.Index(idx).Interface())
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", idx)
			}
			out = append(out, n)
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errors.Wrapf(ErrUnsupportedType, "map key %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)

		out := NewMap()
		for _, k := range keys {
			n, err := Normalize(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}
			out.Set(k, n)
		}
		return out, nil
	}

	if !rv.IsValid() {
		return nil, nil
	}

	return nil, errors.Wrapf(ErrUnsupportedType, "%s", rv.Type())
}

// Text renders a scalar the way it should appear in a header or cookie.
func Text(v any) (string, error) {
	n, err := Normalize(v)
	if err != nil {
		return "", err
	}

	switch n := n.(type) {
	case string:
		return n, nil
	case bool:
		return strconv.FormatBool(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case nil:
		return "", errors.Wrap(ErrUnsupportedType, "null is not a scalar")
	}

	return "", errors.Wrapf(ErrUnsupportedType, "%T is not a scalar", n)
}

// Equal reports whether a and b have the same canonical form.
func Equal(a, b any) bool {
	na, errA := Normalize(a)
	nb, errB := Normalize(b)
	if errA != nil || errB != nil {
		return false
	}
	return equal(na, nb)
}

func equal(a, b any) bool {
	switch a := a.(type) {
	case *Map:
		bm, ok := b.(*Map)
		if !ok || a.Len() != bm.Len() {
			return false
		}
		for idx, k := range a.keys {
			if bm.keys[idx] != k || !equal(a.vals[k], bm.vals[k]) {
				return false
			}
		}
		return true
	case []any:
		bl, ok := b.([]any)
		if !ok || len(a) != len(bl) {
			return false
		}
		for idx := range a {
			if !equal(a[idx], bl[idx]) {
				return false
			}
		}
		return true
	}

	return a == b
}
