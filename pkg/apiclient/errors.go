package apiclient

import (
	"errors"
	"fmt"
)

// APIError is an RFC 7807 problem response from the daemon. Type carries the
// error-taxonomy kind of the failed operation.
type APIError struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Title, e.Status)
}

// Kind returns the error-taxonomy kind, empty for transport-level failures.
func (e *APIError) Kind() string {
	return e.Type
}

// IsBusy returns true when another exclusive operation is already running.
func (e *APIError) IsBusy() bool {
	return e.Type == "busy"
}

// IsAuthError returns true for authorization and credential failures.
func (e *APIError) IsAuthError() bool {
	return e.Type == "not-authorized" || e.Type == "auth-failed"
}

// IsNotFound returns true when discovery found no matching realm.
func (e *APIError) IsNotFound() bool {
	return e.Type == "discovery-failed"
}

// KindOf extracts the taxonomy kind from any error returned by this client.
func KindOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ""
}
