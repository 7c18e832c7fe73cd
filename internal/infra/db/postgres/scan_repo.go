package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

const scanColumns = `id, scan_type, scan_key, original_input, status, score,
       summary, reasons, raw_response, created_at`

type ScanRepository struct{ db *sql.DB }

func NewScanRepository(db *sql.DB) *ScanRepository { return &ScanRepository{db: db} }

// Insert adds a new record; a unique violation on scan_key maps to domain.ErrDuplicateKey.
func (r *ScanRepository) Insert(ctx context.Context, s *domain.ScanRecord) error {
	const q = `
INSERT INTO scan_results
(id, scan_type, scan_key, original_input, status, score,
 summary, reasons, raw_response, created_at)
VALUES ($1,$2,$3,$4,$5,$6,
        $7,$8,$9,$10);`

	reasons, err := json.Marshal(s.Reasons)
	if err != nil {
		return fmt.Errorf("encoding reasons: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q,
		s.ID, s.ScanType, s.ScanKey, s.OriginalInput, s.Status, s.Score,
		s.Summary, string(reasons), jsonOrEmpty(s.RawResponse, "{}"), s.CreatedAt,
	)
	if isDuplicateKey(err) {
		return domain.ErrDuplicateKey
	}
	return err
}

func (r *ScanRepository) FindByTypeAndKey(ctx context.Context, t domain.ScanType, key string) (*domain.ScanRecord, error) {
	q := `SELECT ` + scanColumns + `
FROM scan_results
WHERE scan_type=$1 AND md5(scan_key)=md5($2) AND scan_key=$2
LIMIT 1;`
	return scanOne(r.db.QueryRowContext(ctx, q, t, key))
}

// Get by ID
func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	q := `SELECT ` + scanColumns + `
FROM scan_results
WHERE id=$1
LIMIT 1;`
	return scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *ScanRepository) Latest(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `SELECT ` + scanColumns + `
FROM scan_results
ORDER BY created_at DESC, id DESC
LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ScanRecord
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*domain.ScanRecord, error) {
	s, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

func scanRow(row rowScanner) (*domain.ScanRecord, error) {
	var s domain.ScanRecord
	var original sql.NullString
	var reasons, raw []byte
	if err := row.Scan(
		&s.ID, &s.ScanType, &s.ScanKey, &original, &s.Status, &s.Score,
		&s.Summary, &reasons, &raw, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.OriginalInput = original.String
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &s.Reasons); err != nil {
			return nil, fmt.Errorf("decoding reasons of %s: %w", s.ID, err)
		}
	}
	if len(raw) > 0 {
		s.RawResponse = append(json.RawMessage(nil), raw...)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}
