package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrProviderFailure     = errors.New("provider failure")
	ErrContentRejected     = errors.New("content rejected by provider")
	ErrNoPersistence       = errors.New("persistence not configured")
)
