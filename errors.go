package loyalty

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an API failure for callers that branch on failure
// class rather than message text.
type ErrorKind int

const (
	// KindUnknown is a failure that could not be classified.
	KindUnknown ErrorKind = iota

	// KindNetwork is a transport failure: no response was received.
	KindNetwork

	// KindValidation is a non-success envelope carrying field-level errors.
	KindValidation

	// KindAuth is an authentication failure. The SDK invalidates the cached
	// session token and fires the sign-out hook when it sees one.
	KindAuth

	// KindServer is a non-success envelope or non-2xx status with only a
	// top-level message.
	KindServer

	// KindClient is a client-side guard failure raised before any request
	// is sent (e.g. missing required data).
	KindClient
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// UnauthenticatedMessage is the sentinel message the backend returns for an
// expired or invalid session. Seeing it forces a client-side sign-out.
const UnauthenticatedMessage = "Unauthenticated."

// APIError is the normalized failure shape every SDK operation returns.
// Transport errors, validation failures, auth failures and generic server
// errors all collapse into this one type.
type APIError struct {
	Kind    ErrorKind
	Status  int // HTTP status code, 0 when no response was received
	Message string
	Errors  []FieldError // field-level validation errors, if any
	cause   error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("loyalty: %s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("loyalty: %s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error { return e.cause }

// NewAPIError builds an APIError with an optional wrapped cause.
func NewAPIError(kind ErrorKind, status int, message string, cause error) *APIError {
	return &APIError{Kind: kind, Status: status, Message: message, cause: cause}
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsAuthFailure reports whether err is an authentication failure that should
// force a sign-out.
func IsAuthFailure(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == KindAuth
}

// IsValidationFailure reports whether err carries field-level errors.
func IsValidationFailure(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == KindValidation
}

// FieldErrorMap flattens err's field errors into a field-to-message map for
// binding onto form state. Returns nil when err has no field errors.
func FieldErrorMap(err error) map[string]string {
	apiErr, ok := AsAPIError(err)
	if !ok || len(apiErr.Errors) == 0 {
		return nil
	}
	m := make(map[string]string, len(apiErr.Errors))
	for _, fe := range apiErr.Errors {
		if _, seen := m[fe.Field]; !seen {
			m[fe.Field] = fe.Message
		}
	}
	return m
}
