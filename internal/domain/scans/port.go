package scans

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	// FindByTypeAndKey returns ErrNotFound when no row matches.
	FindByTypeAndKey(ctx context.Context, t ScanType, key string) (*ScanRecord, error)
	// Insert returns ErrDuplicateKey when scan_key is already stored.
	Insert(ctx context.Context, r *ScanRecord) error
	Get(ctx context.Context, id ScanID) (*ScanRecord, error)
	Latest(ctx context.Context, limit int) ([]*ScanRecord, error)
}

// ReputationClient port (interface untuk lookup ke layanan reputasi eksternal)
type ReputationClient interface {
	LookupURL(ctx context.Context, normalizedURL string) (*LookupResult, error)
	LookupFileHash(ctx context.Context, sha256Hex string) (*LookupResult, error)
}

// RecordCache is an optional in-process cache in front of Repository.
type RecordCache interface {
	Get(t ScanType, key string) (*ScanRecord, bool)
	Add(r *ScanRecord)
}
