// Package common defines shared constants and sentinel errors used across
// the portal client, repositories, and service layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Document lifecycle errors.
	ErrorInconsistentState  = errors.New("inconsistent document state")
	ErrorSubmissionFailed   = errors.New("submission failed")
	ErrorSubmissionRejected = errors.New("submission rejected by the authority")

	// Portal errors surfaced to callers. The raw portal failure is logged,
	// never returned.
	ErrorPortalAuth = errors.New("portal authentication failed")

	// Credential errors.
	ErrorCredentialsMissing = errors.New("portal credentials not configured")
)
