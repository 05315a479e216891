// Package jsonval provides safe accessors over untyped JSON values.
// Parser APIs return arbitrary payloads, so every probe is an exact
// case-sensitive key lookup that reports presence explicitly instead of
// panicking on shape mismatches.
package jsonval

import "strings"

// Obj is a decoded JSON object
type Obj map[string]any

// AsObj converts a decoded JSON value to an Obj when it is an object
func AsObj(v any) (Obj, bool) {
	switch m := v.(type) {
	case Obj:
		return m, true
	case map[string]any:
		return Obj(m), true
	default:
		return nil, false
	}
}

// Get looks up a key, reporting whether it exists
func (o Obj) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o[key]
	return v, ok
}

// Str returns the value under key when it is a string
func (o Obj) Str(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	return Str(v)
}

// FirstStr probes keys in order and returns the first non-empty string
// value found
func (o Obj) FirstStr(keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := o.Str(key); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// FirstTrimmed probes keys in order and returns the first string value
// that is non-empty after trimming whitespace
func (o Obj) FirstTrimmed(keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := o.Str(key); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}

// Obj returns the value under key when it is an object
func (o Obj) Obj(key string) (Obj, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	return AsObj(v)
}

// Arr returns the value under key when it is an array
func (o Obj) Arr(key string) ([]any, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}

// Num returns the value under key when it is a number
func (o Obj) Num(key string) (float64, bool) {
	v, ok := o.Get(key)
	if !ok {
		return 0, false
	}
	return Num(v)
}

// Bool returns the value under key when it is a boolean
func (o Obj) Bool(key string) (bool, bool) {
	v, ok := o.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Str converts a JSON value to a string when it is one
func Str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Num converts a JSON value to a number. encoding/json decodes all JSON
// numbers into float64, so that is the only numeric shape probed.
func Num(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// IsCode reports whether the value under key is a JSON number equal to
// one of the given codes
func (o Obj) IsCode(key string, codes ...float64) bool {
	n, ok := o.Num(key)
	if !ok {
		return false
	}
	for _, code := range codes {
		if n == code {
			return true
		}
	}
	return false
}
