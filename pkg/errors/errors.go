package errors

import (
	"fmt"
	"time"
)

// ErrorType classifies failures from the archive's services
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeClient      ErrorType = "client"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeDecode      ErrorType = "decode"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a failed archive request with type information.
// URL is the resolved URL the request was for; Timestamp is set for
// snapshot fetches and empty for index queries. RetryAfter carries the
// server's Retry-After hint on 429 responses.
type Error struct {
	Type       ErrorType
	Message    string
	Code       int
	URL        string
	Timestamp  string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Timestamp != "" {
		return fmt.Sprintf("%s error (code %d) for %s@%s: %s", e.Type, e.Code, e.URL, e.Timestamp, e.Message)
	}
	return fmt.Sprintf("%s error (code %d) for %s: %s", e.Type, e.Code, e.URL, e.Message)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeNotFound, ErrorTypeClient, ErrorTypeParsing, ErrorTypeDecode:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error, no response
		return true
	case 429:
		return true
	case 500, 502, 503, 504:
		return true
	default:
		return statusCode >= 500
	}
}

// TypeForStatusCode maps an HTTP status code to an ErrorType
func TypeForStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode >= 400:
		return ErrorTypeClient
	default:
		return ErrorTypeUnknown
	}
}
