package sqlite

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/scanerrors"
	"gorm.io/gorm"
)

type ScanErrorRepository struct{ db *gorm.DB }

func NewScanErrorRepository(db *gorm.DB) *ScanErrorRepository { return &ScanErrorRepository{db: db} }

func (r *ScanErrorRepository) Save(ctx context.Context, e *domain.ScanError) error {
	details := e.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else if !json.Valid([]byte(details)) {
		b, _ := json.Marshal(map[string]string{"raw": details})
		details = string(b)
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	row := &scanErrorRow{
		ScanType:    stringOrDash(e.ScanType),
		ScanKey:     stringOrDash(e.ScanKey),
		Kind:        stringOrDash(e.Kind),
		StatusCode:  e.StatusCode,
		Message:     stringOrDash(e.Message),
		DetailsJSON: details,
		CreatedAt:   created,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	e.ID = row.ID
	return nil
}

func (r *ScanErrorRepository) ListByKey(ctx context.Context, scanType, scanKey string, limit int) ([]*domain.ScanError, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []scanErrorRow
	if err := r.db.WithContext(ctx).
		Where("scan_type = ? AND scan_key = ?", scanType, scanKey).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.ScanError, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.ScanError{
			ID:          row.ID,
			ScanType:    row.ScanType,
			ScanKey:     row.ScanKey,
			Kind:        row.Kind,
			StatusCode:  row.StatusCode,
			Message:     row.Message,
			DetailsJSON: row.DetailsJSON,
			CreatedAt:   row.CreatedAt.UTC(),
		})
	}
	return out, nil
}
