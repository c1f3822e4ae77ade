package errors

import "net/http"

// ErrorWithStatusCode carries the HTTP status a handler should answer with.
// Errors without it are reported as 500.
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func (e *ErrorWithStatusCode) Unwrap() error {
	return e.Err
}

func New(status int, message string) *ErrorWithStatusCode {
	return &ErrorWithStatusCode{Message: message, StatusCode: status}
}

func BadRequest(message string) *ErrorWithStatusCode {
	return New(http.StatusBadRequest, message)
}

func Wrap(status int, message string, err error) *ErrorWithStatusCode {
	return &ErrorWithStatusCode{Message: message, StatusCode: status, Err: err}
}
