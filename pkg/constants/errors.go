package constants

import "errors"

// Errors
var (
	ErrIdentityMissing = errors.New("element id is not set")
	ErrEntityNotFound  = errors.New("element not found")
	ErrConfiguration   = errors.New("content type must provide a container id")
	ErrConstruction    = errors.New("invalid element id")
)

var (
	ErrStoreClosed     = errors.New("store is closed")
	ErrStoreMissing    = errors.New("model has no store")
	ErrInvalidResponse = errors.New("invalid store response")
	ErrUnknownDriver   = errors.New("unknown store driver")
)
