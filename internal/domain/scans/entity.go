package scans

import (
	"encoding/json"
	"time"
)

// ID tipe untuk ScanRecord
type ScanID string

// ScanType enum
type ScanType string

const (
	ScanTypeURL  ScanType = "url"
	ScanTypeFile ScanType = "file"
)

// Status enum (verdict)
type Status string

const (
	StatusSafe       Status = "SAFE"
	StatusSuspicious Status = "SUSPICIOUS"
	StatusMalicious  Status = "MALICIOUS"
)

// RawPayload is the decoded response of the reputation service, kept as-is.
type RawPayload map[string]any

// LookupResult is one answer of the reputation service: the decoded payload
// and the exact bytes it was decoded from.
type LookupResult struct {
	Payload RawPayload
	Body    json.RawMessage
}

// ScanRecord is the persisted, immutable result of one lookup.
// ScanKey is unique store-wide: normalized URL or lowercase hex sha256.
type ScanRecord struct {
	ID            ScanID          `json:"id"`
	ScanType      ScanType        `json:"scan_type"`
	ScanKey       string          `json:"scan_key"`
	OriginalInput string          `json:"original_input,omitempty"`
	Status        Status          `json:"status"`
	Score         int             `json:"score"`
	Summary       string          `json:"summary"`
	Reasons       []string        `json:"reasons"`
	RawResponse   json.RawMessage `json:"raw_response,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
