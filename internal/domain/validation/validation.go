package validation

import (
	"errors"
	"sort"
	"strings"
)

// ErrInvalid is the sentinel every *Error unwraps to.
var ErrInvalid = errors.New("validation failed")

// Error reports malformed or out-of-range input, keyed by field name.
type Error struct {
	Fields map[string]string
}

// New returns an Error for a single field.
func New(field, message string) *Error {
	return &Error{Fields: map[string]string{field: message}}
}

// Add records a message for field, keeping the first message per field.
func (e *Error) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = message
}

// OrNil returns nil when no field failed.
func (e *Error) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error { return ErrInvalid }
