package ai

import "errors"

// Provider failures that callers map to distinct HTTP responses.
var (
	// ErrRateLimited means the upstream provider returned 429.
	ErrRateLimited = errors.New("ai provider rate limited")
	// ErrQuotaExhausted means the upstream provider returned 402.
	ErrQuotaExhausted = errors.New("ai provider quota exhausted")
)
