package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the executor.
var (
	// ErrRetryExhausted is returned when a request is still rate limited after its retry.
	ErrRetryExhausted = errors.New("rate limit retry exhausted")

	// ErrContextCancelled is returned when the context is cancelled during the rate-limit wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of API errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors without a dedicated class.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassNotFound represents 404 responses.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassValidation represents 422 validation failures.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassRateLimit represents 429 rate limit responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// ClassifyStatus categorizes a non-2xx HTTP status code.
// Returns "" for successful statuses.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusNotFound:
		return ErrorClassNotFound
	case status == http.StatusUnprocessableEntity:
		return ErrorClassValidation
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Error is a transport error: a non-2xx response or a network failure.
type Error struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	// Response is the failing response; nil for network errors.
	Response *Response
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("commerce api %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("commerce api %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// newStatusError builds an Error for a non-2xx response.
func newStatusError(resp *Response, cause error) *Error {
	return &Error{
		StatusCode: resp.StatusCode,
		ErrorClass: ClassifyStatus(resp.StatusCode),
		Message:    http.StatusText(resp.StatusCode),
		Response:   resp,
		Err:        cause,
	}
}

// newNetworkError builds an Error for a failed round trip.
func newNetworkError(err error) *Error {
	return &Error{
		ErrorClass: ErrorClassNetwork,
		Message:    "request failed",
		Err:        err,
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
