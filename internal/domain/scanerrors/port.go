package scanerrors

import "context"

// Repository defines persistence for scan errors
type Repository interface {
	Save(ctx context.Context, e *ScanError) error
	ListByKey(ctx context.Context, scanType, scanKey string, limit int) ([]*ScanError, error)
}
