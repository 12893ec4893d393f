// Package apperr defines the error kinds shared across ansuz.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrDirectoryMissing = errors.New("directory missing")
	ErrFileUnreadable   = errors.New("file unreadable")
	ErrFileUnwritable   = errors.New("file unwritable")
	ErrNonCompliant     = errors.New("documentation tree is not compliant")
	ErrHistoryDisabled  = errors.New("run history is disabled")
	ErrNotDocument      = errors.New("not a document")
)
