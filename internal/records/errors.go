package records

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned
	// by the caller. The two cases are deliberately indistinguishable so a
	// caller cannot probe for other users' record IDs.
	ErrNotFound = errors.New("record not found")

	// ErrUnsupportedMediaType is returned when an upload's declared
	// content type is not in the allow-list.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrPayloadTooLarge is returned when a single upload exceeds the
	// configured size limit.
	ErrPayloadTooLarge = errors.New("file too large")
)

// ValidationError reports missing or invalid input fields.
type ValidationError struct {
	// Fields lists the offending field names.
	Fields []string
	// Reason is a human-readable explanation.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

func missingFields(fields []string) *ValidationError {
	return &ValidationError{Fields: fields, Reason: "missing required fields"}
}

func invalidField(field, why string) *ValidationError {
	return &ValidationError{Fields: []string{field}, Reason: "invalid field value (" + why + ")"}
}
