package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable means the category tree could not be fetched or was malformed
	ErrUpstreamUnavailable = errors.New("catalog upstream unavailable")
	// ErrPermissionDenied is returned to non-administrative callers of privileged operations
	ErrPermissionDenied = errors.New("permission denied")
	// ErrRejectedRecord marks a raw product that cannot be normalized (missing id)
	ErrRejectedRecord = errors.New("product record rejected")
)

// ValidationError is a client input error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// FetchError describes a failed subcategory fetch. It is folded into search
// stats and never returned to the caller of a search.
type FetchError struct {
	SubcategoryID int
	StatusCode    int
	Err           error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("subcategory %d: HTTP %d", e.SubcategoryID, e.StatusCode)
	}
	return fmt.Sprintf("subcategory %d: %v", e.SubcategoryID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
