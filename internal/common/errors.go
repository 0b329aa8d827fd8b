package common

import "net/http"

// AppError is an error that knows how it should be rendered over HTTP.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// BadRequest builds a 400 pointing at the offending field.
func BadRequest(field, message string, err error) *AppError {
	e := NewAppError("BAD_REQUEST", message, http.StatusBadRequest, err)
	e.Details = map[string]any{"field": field}
	return e
}

// NotFound builds a 404.
func NotFound(message string, err error) *AppError {
	return NewAppError("NOT_FOUND", message, http.StatusNotFound, err)
}

// TooLarge builds a 413 for a body over the configured limit.
func TooLarge(err error) *AppError {
	return NewAppError("PAYLOAD_TOO_LARGE", "request entity too large", http.StatusRequestEntityTooLarge, err)
}
