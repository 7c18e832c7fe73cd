package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/analyst"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnalystRepository struct{ db *gorm.DB }

func NewAnalystRepository(db *gorm.DB) *AnalystRepository { return &AnalystRepository{db: db} }

// Save upsert by id
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	result := a.Result
	if !json.Valid([]byte(result)) {
		result = "{}"
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	row := &analysisRow{
		ID:         string(a.ID),
		ScanID:     a.ScanID,
		Model:      stringOrDash(a.Model),
		ResultJSON: result,
		CreatedAt:  created,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"model", "result_json"}),
	}).Create(row).Error
}

func (r *AnalystRepository) LatestByScan(ctx context.Context, scanID string) (*domain.Analysis, error) {
	var row analysisRow
	err := r.db.WithContext(ctx).
		Where("scan_id = ?", scanID).
		Order("created_at DESC").Order("id DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Analysis{
		ID:        domain.AnalysisID(row.ID),
		ScanID:    row.ScanID,
		Model:     row.Model,
		Result:    row.ResultJSON,
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}
