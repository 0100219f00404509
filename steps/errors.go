// ABOUTME: Error types for step validation and anti-automation checks
// ABOUTME: ValidationError collects every field violation; ErrAutomation stays generic
package steps

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAutomation is returned for honeypot or timestamp violations. It is
// deliberately generic so responses do not reveal which heuristic fired.
var ErrAutomation = errors.New("submission rejected")

// Field violation codes.
const (
	CodeRequired   = "required"
	CodeInvalid    = "invalid"
	CodeTooLong    = "too_long"
	CodeDisposable = "disposable"
)

// FieldError is one violated constraint on one field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries every violated field constraint for a payload,
// not just the first.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether any violation exists for the named field.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// violations accumulates field errors while a validator runs.
type violations struct {
	fields []FieldError
}

func (v *violations) add(field, code, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Code: code, Message: message})
}

func (v *violations) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
