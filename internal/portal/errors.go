package portal

import (
	"errors"
	"fmt"
)

// ErrNotLoggedIn signals a programmer error: an authenticated operation was
// called before Login. It is never retried.
var ErrNotLoggedIn = errors.New("portal: client is not logged in")

// AuthError means the portal refused the credentials at initial login
// (wrong password/PIN, locked account). It is never auto-retried.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("portal: authentication failed: %s", e.Reason)
}

// SessionExpiredError means a previously valid session went stale mid-use
// and the single transparent re-authentication attempt also failed. Distinct
// from AuthError: the credentials worked once during this cycle.
type SessionExpiredError struct{}

func (e *SessionExpiredError) Error() string {
	return "portal: session expired and re-authentication failed"
}

// PortalError is any non-success answer from the authority that is not an
// authentication problem. StatusCode carries the HTTP status observed.
type PortalError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *PortalError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("portal: %s failed with status %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("portal: %s failed with status %d", e.Op, e.StatusCode)
}

// NetworkError wraps a transport failure. The raw cause is preserved for
// logging but never surfaced to end users.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("portal: network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
