package scans

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimitExceeded: upstream kept answering 429 after all attempts.
	ErrRateLimitExceeded = errors.New("reputation service rate limit exceeded")
	// ErrUpstreamTimeout: upstream did not answer in time after all attempts.
	ErrUpstreamTimeout = errors.New("reputation service timed out")
	// ErrInvalidKeyInput: malformed URL or empty file content reached the service.
	ErrInvalidKeyInput = errors.New("invalid scan key input")

	ErrNotFound     = errors.New("scan not found")
	ErrDuplicateKey = errors.New("scan key already exists")
)

// UpstreamError is a definitive, non-retriable failure from the reputation service.
// StatusCode is 0 when the request never produced an HTTP response.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("reputation service request failed: %s", e.Body)
	}
	return fmt.Sprintf("reputation service HTTP error %d: %s", e.StatusCode, e.Body)
}
