// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Error text uses the kebab-case diagnostic codes that are surfaced to API callers
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Target URL errors.
var (
	// ErrMissingTargetURL indicates an empty preview target.
	ErrMissingTargetURL = errors.New("missing-target-url")

	// ErrInvalidTargetURL indicates a target that cannot be turned into an absolute http(s) URL.
	ErrInvalidTargetURL = errors.New("invalid-target-url")

	// ErrPrivateHost indicates a target that connects to a loopback, private or link-local address.
	ErrPrivateHost = errors.New("private-host")
)

// Upstream errors.
var (
	// ErrUpstreamStatus indicates a non-success HTTP status from the upstream page.
	ErrUpstreamStatus = errors.New("upstream status not OK")

	// ErrEmptyResponse indicates the page was fetched but no preview field could be extracted.
	ErrEmptyResponse = errors.New("empty response")

	// ErrTooManyRedirects indicates the upstream redirected too many times.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Request validation errors.
var (
	// ErrInvalidPayload indicates a request body that is not valid JSON.
	ErrInvalidPayload = errors.New("invalid-payload")

	// ErrRateLimited indicates the caller exceeded its request budget.
	ErrRateLimited = errors.New("rate-limited")
)

// ErrPreviewFailed is the fallback message for a failed item without a better description.
var ErrPreviewFailed = errors.New("preview-failed")
