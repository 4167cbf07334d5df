package domain

import (
	"errors"
	"fmt"
)

// DomainError is a persisted, never-retried failure belonging to the closed
// ErrorType enumeration (spec §7's "domain errors" layer, as opposed to
// orchestration errors which internal/resilience retries).
type DomainError struct {
	Type       ErrorType
	Repository string
	FilePath   string
	Message    string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s (%s/%s)", e.Type, e.Message, e.Repository, e.FilePath)
}

// NewDomainError validates errType against the closed enumeration before
// constructing the error; an invalid type is itself reported as
// validation_error so callers never propagate an unrecognized tag.
func NewDomainError(errType ErrorType, repository, filePath, message string) *DomainError {
	if !errType.valid() {
		return &DomainError{
			Type:       ErrorValidation,
			Repository: repository,
			FilePath:   filePath,
			Message:    fmt.Sprintf("invalid error_type %q: %s", errType, message),
		}
	}
	return &DomainError{Type: errType, Repository: repository, FilePath: filePath, Message: message}
}

// AsDomainError unwraps err looking for a *DomainError, the way callers
// decide whether a failure belongs in indexing_errors or should instead be
// retried by the resilience layer.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}
