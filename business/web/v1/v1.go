// Package v1 represents types used by the web application for v1.
package v1

import (
	"errors"
	"net/http"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
)

// ErrorResponse is the form used for API responses from failures in the API.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// RequestError is used to pass an error during the request through the
// application with web specific context.
type RequestError struct {
	Err    error
	Status int
}

// NewRequestError wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewRequestError(err error, status int) error {
	return &RequestError{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *RequestError) Error() string {
	return re.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (re *RequestError) Unwrap() error {
	return re.Err
}

// IsRequestError checks if an error of type RequestError exists.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// GetRequestError returns a copy of the RequestError pointer.
func GetRequestError(err error) *RequestError {
	var re *RequestError
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// NewChainError classifies an error returned by the blockchain. A rejected
// transaction is the client's to correct and a rejected block is not
// acceptable to this node. Anything else is returned unchanged.
func NewChainError(err error) error {
	var txErr *database.TxError
	var blkErr *database.BlockError

	switch {
	case errors.As(err, &blkErr):
		return NewRequestError(err, http.StatusNotAcceptable)
	case errors.As(err, &txErr):
		return NewRequestError(err, http.StatusBadRequest)
	case errors.Is(err, database.ErrNotFound):
		return NewRequestError(err, http.StatusNotFound)
	}

	return err
}

// Kind returns the name of the rejection kind held by the error, if any.
func Kind(err error) string {
	var blkErr *database.BlockError
	if errors.As(err, &blkErr) {
		return blkErr.Kind.Error()
	}

	var txErr *database.TxError
	if errors.As(err, &txErr) {
		return txErr.Kind.Error()
	}

	return ""
}
