package model

import (
	"bytes"
	"encoding/json"
)

// Field is a tri-state patch value. A zero Field means "omitted"; a set
// Field carries the new value, where a nil pointer or empty value means the
// field is explicitly cleared.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some returns a set Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// IsZero reports whether the field was omitted. It lets `omitzero` drop
// omitted fields when encoding.
func (f Field[T]) IsZero() bool {
	return !f.Set
}

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.Set
}

// MarshalJSON encodes the carried value.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// UnmarshalJSON marks the field as set. JSON null leaves the zero value,
// which for pointer types means "clear".
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}
