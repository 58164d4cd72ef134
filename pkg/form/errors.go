package form

import (
	"errors"
	"fmt"
)

// ErrSubmitInFlight is returned while a previous submission of the same form
// instance is still pending.
var ErrSubmitInFlight = errors.New("form: submission already in flight")

// FieldError is a single failing field. Aggregate is set for record-level
// failures attached to a list field, such as a percentage sum that is not 100.
type FieldError struct {
	Field     string `json:"field"`
	Message   string `json:"message"`
	Aggregate bool   `json:"aggregate,omitempty"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError blocks a submission because at least one field failed.
type ValidationError struct {
	Fields       []FieldError `json:"fields"`
	FirstInvalid string       `json:"firstInvalid"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("form: %s", e.Fields[0].Error())
	}
	return fmt.Sprintf("form: %d invalid fields, first %q", len(e.Fields), e.FirstInvalid)
}

// MissingReferenceError reports a selected id that is absent from the lookup
// collection currently loaded for the field.
type MissingReferenceError struct {
	Field      string `json:"field"`
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("form: field %q references %s %q which is not loaded", e.Field, e.Collection, e.ID)
}

// SubmissionError wraps a rejection of the injected submit function.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return "form: submission failed"
	}
	return "form: submission failed: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error { return e.Err }
