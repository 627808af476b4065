package facade

import (
	"errors"
	"fmt"

	"jittr/pkg/validate"
)

// Sentinel errors shared across facade operations.
var (
	// ErrDuplicateKey reports a batch mapping the same identity twice.
	ErrDuplicateKey = errors.New("duplicate key in batch")

	// ErrForbidden reports a permission-evaluator denial.
	ErrForbidden = errors.New("forbidden")
)

// IdentityNotFoundError reports a caller identity that did not resolve to
// a stored jitter. It is raised before any validation or persistence work.
type IdentityNotFoundError struct {
	Username string
}

func (e *IdentityNotFoundError) Error() string {
	return fmt.Sprintf("could not find jitter %q", e.Username)
}

// NotFoundError reports a missing target record.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find entity %d", e.ID)
}

// ValidationError carries every field-level violation found on one
// representation. Callers can correct the listed fields and retry.
type ValidationError struct {
	Fields []validate.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("representation invalid: %d field error(s)", len(e.Fields))
}
