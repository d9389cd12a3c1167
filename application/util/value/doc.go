// Package value is the bridge between host dynamic values and request or
// response payloads.
//
// The representation is plain Go:
//
//   - nil
//   - bool
//   - int64 (every Go integer kind is accepted on input)
//   - float64 (float32 is accepted on input)
//   - string (valid UTF-8 only)
//   - []any
//   - *Map, a string-keyed map that remembers insertion order
//   - map[string]any, encoded with sorted keys
//
// Decoding always produces the canonical forms: int64, float64, []any and *Map.
package value
