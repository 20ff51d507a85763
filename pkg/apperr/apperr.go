package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the failure modes the pipeline distinguishes.
const (
	CodeUnsupportedFormat  = "unsupported_format"
	CodeExtractionFailure  = "extraction_failure"
	CodeEmptyContent       = "empty_content"
	CodeIndexingFailure    = "indexing_failure"
	CodeNotFound           = "not_found"
	CodeUnauthorized       = "unauthorized"
	CodeModelOutputInvalid = "model_output_invalid"
)

// Error carries a machine-readable code and an HTTP status alongside
// the wrapped cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func UnsupportedFormat(err error) *Error {
	return New(http.StatusBadRequest, CodeUnsupportedFormat, err)
}

func ExtractionFailure(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeExtractionFailure, err)
}

func EmptyContent(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeEmptyContent, err)
}

func IndexingFailure(err error) *Error {
	return New(http.StatusInternalServerError, CodeIndexingFailure, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusForbidden, CodeUnauthorized, err)
}

func ModelOutputInvalid(err error) *Error {
	return New(http.StatusBadGateway, CodeModelOutputInvalid, err)
}

// HasCode reports whether err is (or wraps) an *Error with this code.
func HasCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
