// Package apierr classifies failures of calls to the Cribl REST API and
// turns them into one human/agent-readable message.
//
// Every outbound call (credential exchanges and resource requests alike)
// reports failures through the types below; Normalize is the only place
// where detail text is extracted from an error response.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNoResponse is matched by a *TransportError: the request never
	// produced an HTTP response (connection refused, DNS failure, timeout).
	ErrNoResponse = errors.New("no response received from server")

	// ErrRefresh is matched by a *RefreshError.
	ErrRefresh = errors.New("credential refresh failed")

	// ErrUnexpectedStatus is matched by a *ResponseError.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// TransportError is returned when no response reached the caller.
type TransportError struct {
	// Err is the underlying network or context error.
	Err error
}

// Error returns the error message.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no response received from server: %v", e.Err)
	}
	return "no response received from server"
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is supports errors.Is(err, ErrNoResponse).
func (e *TransportError) Is(target error) bool {
	return target == ErrNoResponse
}

// ResponseError is returned when the server answered with a status outside
// the success range.
type ResponseError struct {
	// Status is the HTTP status code.
	Status int
	// StatusText is the reason phrase, if any.
	StatusText string
	// Body is the response body. It is usually []byte, but callers may
	// supply an already-decoded value (string, map, struct).
	Body any
}

// Error returns the error message.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("server returned %d", e.Status)
}

// Is supports errors.Is(err, ErrUnexpectedStatus).
func (e *ResponseError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// MalformedResponseError is returned when a successful response carried a
// body that could not be decoded into the expected shape.
type MalformedResponseError struct {
	Status int
	Body   []byte
	Err    error
}

// Error returns the error message.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response body (status %d): %v", e.Status, e.Err)
}

// Unwrap returns the decode error.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// RefreshError is returned when a credential exchange failed. Message is
// already normalized, so Normalize passes it through unchanged.
type RefreshError struct {
	// Mode names the credential source ("client credentials", "login").
	Mode string
	// Message is the normalized, user-facing description.
	Message string
	// Err is the classified exchange failure.
	Err error
}

// Error returns the normalized message.
func (e *RefreshError) Error() string {
	return e.Message
}

// Unwrap returns the exchange failure.
func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Is supports errors.Is(err, ErrRefresh).
func (e *RefreshError) Is(target error) bool {
	return target == ErrRefresh
}

// IsSuccess reports whether status falls in the success range [200, 300).
// 1xx and 3xx answers are failures: redirects are never followed for
// authenticated calls.
func IsSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// CheckStatus returns a *ResponseError when status is outside the success
// range, and nil otherwise.
func CheckStatus(status int, body []byte) error {
	if IsSuccess(status) {
		return nil
	}
	return &ResponseError{
		Status:     status,
		StatusText: http.StatusText(status),
		Body:       body,
	}
}
