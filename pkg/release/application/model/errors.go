package model

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConfig     = errors.New("configuration error")
	ErrValidation = errors.New("validation error")
	ErrVersion    = errors.New("invalid version")
	ErrConflict   = errors.New("already exists")
	ErrNotFound   = errors.New("not found")
	ErrCancelled  = errors.New("cancelled by user")
)

// ConnectivityError reports that the hosting API could not be reached at all.
type ConnectivityError struct {
	URL string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("failed to reach %v: %v", e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx answer of the hosting API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request %v failed with status %d: %v", e.Endpoint, e.StatusCode, e.Body)
}
