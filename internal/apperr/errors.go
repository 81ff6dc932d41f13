// Package apperr defines the error classes shared across the document model.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIntegrity       = errors.New("integrity error")
	ErrUnsupported     = errors.New("unsupported")
)
