package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("story not found")
	ErrInvalidID = errors.New("invalid story id")
	ErrConflict  = errors.New("story was modified concurrently")
)

// ValidationError rejects a submission before any side effect happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UpstreamMediaError reports a failed call to the media store that aborted
// the enclosing operation.
type UpstreamMediaError struct {
	Op  string
	Err error
}

func (e *UpstreamMediaError) Error() string {
	return fmt.Sprintf("media %s: %v", e.Op, e.Err)
}

func (e *UpstreamMediaError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsUpstreamMedia(err error) bool {
	var u *UpstreamMediaError
	return errors.As(err, &u)
}
