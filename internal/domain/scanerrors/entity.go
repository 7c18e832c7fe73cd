package scanerrors

import "time"

// ScanError is a diagnostic entry for a failed upstream lookup.
// It is never read back by the scan flow; failures are not cached.
type ScanError struct {
	ID          int64     `json:"id"`
	ScanType    string    `json:"scan_type"`
	ScanKey     string    `json:"scan_key"`
	Kind        string    `json:"kind"` // rate_limited | timeout | upstream | other
	StatusCode  int       `json:"status_code,omitempty"`
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
