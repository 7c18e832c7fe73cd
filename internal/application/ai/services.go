package ai

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bryanwahyu/cyberguard/internal/application"
	domainai "github.com/bryanwahyu/cyberguard/internal/domain/ai"
	"github.com/bryanwahyu/cyberguard/internal/domain/analyst"
	"github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

// ScanReader is the part of the scan store the advisor needs.
type ScanReader interface {
	Get(ctx context.Context, id scans.ScanID) (*scans.ScanRecord, error)
}

type Service struct {
	Scans   ScanReader
	Advisor domainai.Advisor
	Repo    analyst.Repository
	Clock   application.Clock
}

// AdviseAndStore minta advisory untuk scan yang sudah ada lalu simpan hasilnya.
func (s *Service) AdviseAndStore(ctx context.Context, scanID scans.ScanID) (*analyst.Analysis, error) {
	rec, err := s.Scans.Get(ctx, scanID)
	if err != nil {
		return nil, err
	}
	result, err := s.Advisor.Advise(ctx, rec)
	if err != nil {
		return nil, err
	}
	a := &analyst.Analysis{
		ID:        analyst.AnalysisID(uuid.NewString()),
		ScanID:    string(rec.ID),
		Model:     s.Advisor.ModelName(),
		Result:    result,
		CreatedAt: s.Clock.Now().UTC(),
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("saving analysis for %s: %w", rec.ID, err)
	}
	return a, nil
}

// Latest ambil advisory terbaru; scans.ErrNotFound kalau belum ada.
func (s *Service) Latest(ctx context.Context, scanID scans.ScanID) (*analyst.Analysis, error) {
	a, err := s.Repo.LatestByScan(ctx, string(scanID))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, scans.ErrNotFound
	}
	return a, nil
}
