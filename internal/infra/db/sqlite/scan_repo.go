package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
	"gorm.io/gorm"
)

type ScanRepository struct{ db *gorm.DB }

func NewScanRepository(db *gorm.DB) *ScanRepository { return &ScanRepository{db: db} }

func (r *ScanRepository) Insert(ctx context.Context, s *domain.ScanRecord) error {
	row, err := toScanRow(s)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Create(row).Error
	if isDuplicateKey(err) {
		return domain.ErrDuplicateKey
	}
	return err
}

func (r *ScanRepository) FindByTypeAndKey(ctx context.Context, t domain.ScanType, key string) (*domain.ScanRecord, error) {
	var row scanRecordRow
	err := r.db.WithContext(ctx).
		Where("scan_type = ? AND scan_key = ?", string(t), key).
		Take(&row).Error
	return fromScanRowErr(&row, err)
}

func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	var row scanRecordRow
	err := r.db.WithContext(ctx).Where("id = ?", string(id)).Take(&row).Error
	return fromScanRowErr(&row, err)
}

func (r *ScanRepository) Latest(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []scanRecordRow
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.ScanRecord, 0, len(rows))
	for i := range rows {
		s, err := fromScanRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toScanRow(s *domain.ScanRecord) (*scanRecordRow, error) {
	reasons, err := json.Marshal(s.Reasons)
	if err != nil {
		return nil, fmt.Errorf("encoding reasons: %w", err)
	}
	raw := "{}"
	if len(s.RawResponse) > 0 && json.Valid(s.RawResponse) {
		raw = string(s.RawResponse)
	}
	return &scanRecordRow{
		ID:            string(s.ID),
		ScanType:      string(s.ScanType),
		ScanKey:       s.ScanKey,
		OriginalInput: s.OriginalInput,
		Status:        string(s.Status),
		Score:         s.Score,
		Summary:       s.Summary,
		Reasons:       string(reasons),
		RawResponse:   raw,
		CreatedAt:     s.CreatedAt.UTC(),
	}, nil
}

func fromScanRowErr(row *scanRecordRow, err error) (*domain.ScanRecord, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromScanRow(row)
}

func fromScanRow(row *scanRecordRow) (*domain.ScanRecord, error) {
	s := &domain.ScanRecord{
		ID:            domain.ScanID(row.ID),
		ScanType:      domain.ScanType(row.ScanType),
		ScanKey:       row.ScanKey,
		OriginalInput: row.OriginalInput,
		Status:        domain.Status(row.Status),
		Score:         row.Score,
		Summary:       row.Summary,
		RawResponse:   json.RawMessage(row.RawResponse),
		CreatedAt:     row.CreatedAt.UTC(),
	}
	if row.Reasons != "" {
		if err := json.Unmarshal([]byte(row.Reasons), &s.Reasons); err != nil {
			return nil, fmt.Errorf("decoding reasons of %s: %w", row.ID, err)
		}
	}
	return s, nil
}
