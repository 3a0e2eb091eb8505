package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening at the address
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a host name could not be resolved
	ErrTypeDNS
	// ErrTypeHTTP indicates an unexpected HTTP status
	ErrTypeHTTP
	// ErrTypeRejected indicates the bridge refused the settings
	ErrTypeRejected
	// ErrTypeParse indicates a malformed response
	ErrTypeParse
	// ErrTypeMismatch indicates read-back settings differ from what was sent
	ErrTypeMismatch
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeRejected:
		return "Settings Rejected"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeMismatch:
		return "Verification Mismatch"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// RemoteError is returned by all Client calls.
type RemoteError struct {
	Type       ErrorType
	Message    string
	StatusCode int      // HTTP status, when a response was received
	Details    []string // Problems reported by the bridge
	Err        error
	Retryable  bool
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a transport error to a RemoteError.
func ClassifyNetworkError(message string, err error) *RemoteError {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}

	re := &RemoteError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}

	var dnsErr *net.DNSError
	switch {
	case os.IsTimeout(err):
		re.Type = ErrTypeTimeout
	case errors.As(err, &dnsErr):
		re.Type = ErrTypeDNS
		re.Retryable = false
	case errors.Is(err, syscall.ECONNREFUSED):
		re.Type = ErrTypeConnectionRefused
	}
	return re
}

// NewHTTPError creates an error for an unexpected status code. Server
// errors are retryable.
func NewHTTPError(statusCode int, message string) *RemoteError {
	return &RemoteError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewRejectedError creates an error for settings the bridge refused.
func NewRejectedError(statusCode int, message string, details []string) *RemoteError {
	return &RemoteError{
		Type:       ErrTypeRejected,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *RemoteError {
	return &RemoteError{Type: ErrTypeParse, Message: message, Err: err}
}

func isType(err error, types ...ErrorType) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	for _, t := range types {
		if re.Type == t {
			return true
		}
	}
	return false
}

// IsNetworkError checks if an error happened below HTTP.
func IsNetworkError(err error) bool {
	return isType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS)
}

// IsRejected checks if the bridge refused the settings.
func IsRejected(err error) bool {
	return isType(err, ErrTypeRejected)
}

// IsMismatch checks if verification found different settings.
func IsMismatch(err error) bool {
	return isType(err, ErrTypeMismatch)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// GetTroubleshootingHint returns operator advice for an error.
func GetTroubleshootingHint(err error) string {
	var re *RemoteError
	if !errors.As(err, &re) {
		return "An unexpected error occurred. Please try again."
	}

	switch re.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The bridge did not respond in time.",
			"Troubleshooting:",
			"  • Check that the bridge is powered on",
			"  • Try a longer --timeout",
		}, "\n")
	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The bridge refused the connection.",
			"Troubleshooting:",
			"  • Check the port in --url (serlink-server defaults to :8080)",
			"  • The bridge may be rebooting; wait a few seconds",
		}, "\n")
	case ErrTypeDNS:
		return "Could not resolve the bridge host name. Use its IP address or run 'serlink-cfg scan'."
	case ErrTypeRejected:
		return "The bridge rejected the settings. Fix the listed fields and retry."
	case ErrTypeMismatch:
		return "The bridge accepted the update but reports different settings. Another client may be editing it."
	}
	return "Check the bridge address and network connection."
}
