package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryable marks failures the retry policy may re-attempt.
	ErrRetryable = errors.New("retryable failure")

	// ErrMissingCredential is returned when a record has no matching API secret.
	ErrMissingCredential = errors.New("missing credential")

	// ErrMalformedResponse is returned when a 200 response body is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response body")

	// ErrUnexpectedStatus is returned by read paths for non-retryable status codes.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrContextCancelled is returned when the context is cancelled during retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassBusiness represents HTTP 200 responses with Success=false.
	ErrorClassBusiness ErrorClass = "business"
)

// RetryableError is a transient failure: HTTP 429, HTTP >= 500, or a declared
// business-transient condition.
type RetryableError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable %s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrRetryable) hold for every RetryableError.
func (e *RetryableError) Is(target error) bool {
	return target == ErrRetryable
}

// TerminalError ends processing for a single record without retry.
type TerminalError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TerminalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("terminal %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("terminal %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TerminalError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err may be re-attempted.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

// classifyStatus maps an HTTP status to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// shouldRetry determines if an error class is eligible for backoff-and-retry.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit:
		return true
	default:
		// Network failures are terminal: a timed-out POST may already have
		// been applied remotely.
		return false
	}
}

// errorClassOf extracts the class from a client error, or "" for foreign errors.
func errorClassOf(err error) ErrorClass {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.ErrorClass
	}
	var te *TerminalError
	if errors.As(err, &te) {
		return te.ErrorClass
	}
	return ""
}
