package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy of the upload pipeline and the record store.
var (
	ErrInvalidFileType        = errors.New("invalid file type")
	ErrFileTooLarge           = errors.New("file too large")
	ErrNormalization          = errors.New("image normalization failed")
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrUnexpected             = errors.New("unexpected failure")
)

// NewValidationError wraps ErrValidation with a human-readable reason.
func NewValidationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// StatusCode maps an error from the taxonomy to the HTTP status it surfaces as.
// Parameters:
//   - err: error returned by a pipeline stage or store operation.
// Returns:
//   - int: HTTP status code; 500 for anything outside the taxonomy.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidFileType),
		errors.Is(err, ErrFileTooLarge),
		errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNormalization):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCodes are the stable, machine-readable names of the taxonomy used in API responses.
var errorCodes = []struct {
	code string
	err  error
}{
	{"invalid_file_type", ErrInvalidFileType},
	{"file_too_large", ErrFileTooLarge},
	{"validation_failed", ErrValidation},
	{"normalization_failed", ErrNormalization},
	{"not_found", ErrNotFound},
	{"persistence_unavailable", ErrPersistenceUnavailable},
}

// Code returns the API error code for err; "unexpected" outside the taxonomy.
func Code(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "unexpected"
}

// ErrorForCode is the inverse of Code. Unknown codes map to ErrUnexpected.
func ErrorForCode(code string) error {
	for _, c := range errorCodes {
		if c.code == code {
			return c.err
		}
	}
	return ErrUnexpected
}

// IsClientError reports whether err is caused by the request rather than the server.
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}
