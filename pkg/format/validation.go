package format

import (
	"fmt"
	"strings"
)

// Failure is one failed validation rule on a field.
type Failure struct {
	Rule    string `json:"rule"`
	Message string `json:"message,omitempty"`
}

// ValidationErrors collects failed rules per field. Fields and rules keep the
// order in which they were added.
type ValidationErrors struct {
	fields   []string
	failures map[string][]Failure
}

// NewValidationErrors creates an empty ValidationErrors.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{failures: make(map[string][]Failure)}
}

// Add records a failed rule for a field. The message may be empty and
// resolved later from the rule name.
func (ve *ValidationErrors) Add(field, rule, message string) *ValidationErrors {
	if ve.failures == nil {
		ve.failures = make(map[string][]Failure)
	}
	if _, ok := ve.failures[field]; !ok {
		ve.fields = append(ve.fields, field)
	}
	ve.failures[field] = append(ve.failures[field], Failure{Rule: rule, Message: message})
	return ve
}

// Fields returns the failed fields in insertion order.
func (ve *ValidationErrors) Fields() []string {
	if ve == nil {
		return nil
	}
	return append([]string{}, ve.fields...)
}

// Failures returns the failed rules of a field in declaration order.
func (ve *ValidationErrors) Failures(field string) []Failure {
	if ve == nil {
		return nil
	}
	return append([]Failure{}, ve.failures[field]...)
}

// HasErrors returns true if any rule failed.
func (ve *ValidationErrors) HasErrors() bool {
	return ve != nil && len(ve.fields) > 0
}

// Count returns the total number of failed rules across all fields.
func (ve *ValidationErrors) Count() int {
	if ve == nil {
		return 0
	}
	count := 0
	for _, failures := range ve.failures {
		count += len(failures)
	}
	return count
}

// Clone returns an independent copy.
func (ve *ValidationErrors) Clone() *ValidationErrors {
	out := NewValidationErrors()
	if ve == nil {
		return out
	}
	for _, field := range ve.fields {
		for _, f := range ve.failures[field] {
			out.Add(field, f.Rule, f.Message)
		}
	}
	return out
}

// Resolve fills empty messages using fn, keyed by rule.
func (ve *ValidationErrors) Resolve(fn func(rule string) (string, bool)) {
	if ve == nil || fn == nil {
		return
	}
	for _, field := range ve.fields {
		failures := ve.failures[field]
		for i := range failures {
			if failures[i].Message != "" {
				continue
			}
			if msg, ok := fn(failures[i].Rule); ok {
				failures[i].Message = msg
			}
		}
	}
}

// Error implements the error interface.
func (ve *ValidationErrors) Error() string {
	if !ve.HasErrors() {
		return "validation failed"
	}

	var messages []string
	for _, field := range ve.fields {
		for _, f := range ve.failures[field] {
			msg := f.Message
			if msg == "" {
				msg = f.Rule
			}
			messages = append(messages, fmt.Sprintf("  - %s: %s", field, msg))
		}
	}

	if len(messages) == 1 {
		return fmt.Sprintf("validation failed: %s", strings.TrimPrefix(messages[0], "  - "))
	}

	return fmt.Sprintf("validation failed:\n%s", strings.Join(messages, "\n"))
}
