package features

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingOrInvalidField is matched by every validation failure of a
// request payload.
var ErrMissingOrInvalidField = errors.New("missing or invalid field")

// Issue describes why a single field was rejected.
type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// FieldError lists every rejected field of a payload in feature order.
type FieldError struct {
	Issues []Issue
}

func (e *FieldError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = fmt.Sprintf("%s (%s)", is.Field, is.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrMissingOrInvalidField, strings.Join(parts, ", "))
}

func (e *FieldError) Is(target error) bool { return target == ErrMissingOrInvalidField }

// Fields returns the names of the rejected fields.
func (e *FieldError) Fields() []string {
	out := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		out[i] = is.Field
	}
	return out
}
