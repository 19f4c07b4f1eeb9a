// Package apperr holds the sentinel errors shared across postdeck.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrUnreachable covers transport failures: refused connections, DNS, bad URLs.
	ErrUnreachable = errors.New("upstream unreachable")
	// ErrDecode means the upstream answered with a body that is not the expected JSON.
	ErrDecode       = errors.New("decode upstream response")
	ErrUpstream     = errors.New("upstream error")
	ErrNoBaseURL    = errors.New("base URL is not configured")
	ErrInvalidQuery = errors.New("invalid query")
)
