package store

import (
	"errors"
	"fmt"
)

// ErrEmptyPage is returned when Append is called without records.
var ErrEmptyPage = errors.New("page has no records")

// WriteError reports a failed write to an app's stored output.
type WriteError struct {
	AppID string
	Op    string
	Err   error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("store %s for app %s: %v", e.Op, e.AppID, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *WriteError) Unwrap() error {
	return e.Err
}
