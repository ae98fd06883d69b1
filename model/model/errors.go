package model

import "fmt"

// UnsupportedConditionError is returned when a condition's operator and value type
// cannot be expressed in the target dialect, e.g. contains on a numeric property.
type UnsupportedConditionError struct {
	Condition Condition
	Reason    string
}

func (e *UnsupportedConditionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported condition: %s", e.Condition)
	}
	return fmt.Sprintf("unsupported condition %s: %s", e.Condition, e.Reason)
}

// MalformedRequestError is returned for structurally invalid requests.
type MalformedRequestError struct {
	Field  string
	Reason string
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("malformed request: %s: %s", e.Field, e.Reason)
}

func newMalformed(field, format string, args ...interface{}) error {
	return &MalformedRequestError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func NewMalformedRequestError(field, format string, args ...interface{}) error {
	return newMalformed(field, format, args...)
}
