// Package validator checks incoming request bodies against the field
// constraints the store enforces, returning a structured ValidationError so
// the HTTP layer can report every violation in one response instead of
// failing on the first.
package validator

import (
	"fmt"
	"unicode/utf8"

	"github.com/issueboard/server/internal/types"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// FieldError names a single invalid field and why.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every FieldError found while checking a
// request. It is never returned with zero FieldErrors.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
	}
	return fmt.Sprintf("validation failed: %d fields invalid", len(e.Fields))
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// CreateIssueInput is the set of user-supplied fields for issue creation,
// prior to validation.
type CreateIssueInput struct {
	Title       string
	Description string
	Status      types.Status
	Priority    types.Priority
	AssigneeID  *string
	OrderIndex  float64
}

// CreateIssue validates a creation request in full, collecting every
// violation rather than stopping at the first.
func CreateIssue(in CreateIssueInput) error {
	verr := &ValidationError{}

	validateTitle(verr, in.Title)
	validateDescription(verr, in.Description)
	validateStatus(verr, in.Status)
	validatePriority(verr, in.Priority)

	return verr.errOrNil()
}

// UpdateIssueInput mirrors CreateIssueInput but every field is optional;
// nil/unset fields are skipped so partial updates only validate what the
// caller actually supplied.
type UpdateIssueInput struct {
	Title       *string
	Description *string
	Status      *types.Status
	Priority    *types.Priority
}

// UpdateIssue validates only the fields present in in.
func UpdateIssue(in UpdateIssueInput) error {
	verr := &ValidationError{}

	if in.Title != nil {
		validateTitle(verr, *in.Title)
	}
	if in.Description != nil {
		validateDescription(verr, *in.Description)
	}
	if in.Status != nil {
		validateStatus(verr, *in.Status)
	}
	if in.Priority != nil {
		validatePriority(verr, *in.Priority)
	}

	return verr.errOrNil()
}

func validateTitle(verr *ValidationError, title string) {
	if title == "" {
		verr.add("title", "must not be empty")
		return
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		verr.add("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}
}

func validateDescription(verr *ValidationError, description string) {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		verr.add("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}
}

func validateStatus(verr *ValidationError, status types.Status) {
	if !status.IsValid() {
		verr.add("status", fmt.Sprintf("must be one of %v", types.ValidStatuses))
	}
}

func validatePriority(verr *ValidationError, priority types.Priority) {
	if !priority.IsValid() {
		verr.add("priority", fmt.Sprintf("must be one of %v", types.ValidPriorities))
	}
}
