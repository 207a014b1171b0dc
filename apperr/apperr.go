package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors for everything the request path can fail with. Handlers
// wrap these with context and map them to a status via Status.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSelfActionForbidden = errors.New("self action forbidden")
	ErrAlreadyExists       = errors.New("already exists")
	ErrValidationFailed    = errors.New("validation failed")
	ErrStoreFailure        = errors.New("store failure")
)

func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrSelfActionForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, ErrValidationFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
