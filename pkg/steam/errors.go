package steam

import (
	"fmt"
	"net/http"
)

// ErrorClass represents a classification of transport errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// Retryable reports whether a request failing with this class may be retried.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx errors will not change on retry
		return false
	}
}

// ClassifyStatus maps a non-200 HTTP status to an error class.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// TransportError reports a request that did not produce a usable 200 response.
type TransportError struct {
	AppID      string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("steam %s error for app %s (status %d): %s: %v",
			e.ErrorClass, e.AppID, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("steam %s error for app %s (status %d): %s",
		e.ErrorClass, e.AppID, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}
