package analyst

import "context"

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	// LatestByScan returns (nil, nil) when the scan has no analysis yet.
	LatestByScan(ctx context.Context, scanID string) (*Analysis, error)
}
