package feed

import "errors"

// Upstream failure taxonomy. Unavailable and Malformed are both
// recoverable for callers: the behavioral path falls back to estimation
// instead of aborting the cycle.
var (
	// ErrUpstreamUnavailable covers network errors, timeouts and rate
	// limiting.
	ErrUpstreamUnavailable = errors.New("feed: upstream unavailable")

	// ErrUpstreamMalformed covers responses whose shape cannot be mapped
	// to the typed event model. Logged loudly since it may indicate an
	// upstream contract change.
	ErrUpstreamMalformed = errors.New("feed: upstream response malformed")

	// ErrTokenNotFound means the upstream does not know the token.
	ErrTokenNotFound = errors.New("feed: token not found upstream")
)
