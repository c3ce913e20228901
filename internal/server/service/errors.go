package service

import "errors"

// Sentinel errors for the service layer. Returned errors wrap one of these
// with detail, so callers match with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrCapacity     = errors.New("folder has reached max file limit")
	ErrTypeMismatch = errors.New("file type mismatch")
	ErrUpstream     = errors.New("blob store failure")
)
