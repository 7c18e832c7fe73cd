package ai

import "errors"

var (
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
	// ErrEmptyAdvice is returned when the provider answered without any content.
	ErrEmptyAdvice = errors.New("ai returned empty advice")
)
