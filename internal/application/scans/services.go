package scans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bryanwahyu/cyberguard/internal/application"
	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

const (
	defaultLatestLimit = 10
	maxLatestLimit     = 100
)

// Service turns scan requests into reports, computing each key at most once.
// Service is designed to be used concurrently and is thread-safe.
//
// Concurrent misses for one key inside this process share a single upstream
// call. Across processes two lookups may still race on a brand-new key; the
// unique scan_key constraint decides the winner and the loser returns the
// winner's row.
type Service struct {
	Repo   domain.Repository
	Lookup domain.ReputationClient
	Clock  application.Clock

	// Cache is optional.
	Cache domain.RecordCache
	// OnCreated is optional and runs once for every newly inserted record.
	OnCreated func(ctx context.Context, rec *domain.ScanRecord)

	inflight singleflight.Group
}

type lookupFunc func(ctx context.Context) (*domain.LookupResult, error)

//
// ==== USE CASES ====
//

// ScanURL returns the report for an already normalized URL.
// originalURL is kept for information only.
func (s *Service) ScanURL(ctx context.Context, originalURL, normalizedURL string) (*domain.ScanRecord, error) {
	canonical, err := domain.NormalizeURL(normalizedURL)
	if err != nil {
		return nil, err
	}
	if canonical != normalizedURL {
		return nil, fmt.Errorf("%w: %q is not a normalized url", domain.ErrInvalidKeyInput, normalizedURL)
	}
	return s.scan(ctx, domain.ScanTypeURL, normalizedURL, originalURL, func(ctx context.Context) (*domain.LookupResult, error) {
		return s.Lookup.LookupURL(ctx, normalizedURL)
	})
}

// ScanFileHash looks up content by its sha256 only. The content is hashed,
// never inspected or executed, and filename is stored as metadata.
func (s *Service) ScanFileHash(ctx context.Context, filename string, content []byte) (*domain.ScanRecord, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: file content is empty", domain.ErrInvalidKeyInput)
	}
	key := domain.FileKey(content)
	return s.scan(ctx, domain.ScanTypeFile, key, filename, func(ctx context.Context) (*domain.LookupResult, error) {
		return s.Lookup.LookupFileHash(ctx, key)
	})
}

// Get ambil 1 scan by id
func (s *Service) Get(ctx context.Context, id domain.ScanID) (*domain.ScanRecord, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, domain.ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// Latest ambil N scan terakhir
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.ScanRecord, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	if limit > maxLatestLimit {
		limit = maxLatestLimit
	}
	return s.Repo.Latest(ctx, limit)
}

func (s *Service) scan(ctx context.Context, t domain.ScanType, key, original string, fetch lookupFunc) (*domain.ScanRecord, error) {
	if rec, err := s.stored(ctx, t, key); err != nil || rec != nil {
		return rec, err
	}

	flightKey := string(t) + "|" + key
	for {
		ch := s.inflight.DoChan(flightKey, func() (any, error) {
			return s.fetchAndStore(ctx, t, key, original, fetch)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// the leader's request was cancelled, not ours: take over
				if res.Shared && isContextErr(res.Err) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			return res.Val.(*domain.ScanRecord), nil
		}
	}
}

func (s *Service) fetchAndStore(ctx context.Context, t domain.ScanType, key, original string, fetch lookupFunc) (*domain.ScanRecord, error) {
	// a previous flight may have stored it while we were queued
	if rec, err := s.stored(ctx, t, key); err != nil || rec != nil {
		return rec, err
	}

	res, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	report := domain.BuildReport(res.Payload)
	rawJSON, err := rawBody(res)
	if err != nil {
		return nil, err
	}

	rec := &domain.ScanRecord{
		ID:            domain.ScanID(uuid.New().String()),
		ScanType:      t,
		ScanKey:       key,
		OriginalInput: original,
		Status:        report.Status,
		Score:         report.Score,
		Summary:       report.Summary,
		Reasons:       report.Reasons,
		RawResponse:   rawJSON,
		CreatedAt:     s.now(),
	}

	// nothing is written once the caller has gone away
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = s.Repo.Insert(ctx, rec)
	if errors.Is(err, domain.ErrDuplicateKey) {
		winner, ferr := s.Repo.FindByTypeAndKey(ctx, t, key)
		if ferr != nil {
			return nil, fmt.Errorf("reading winning record after duplicate key: %w", ferr)
		}
		s.remember(winner)
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inserting scan record: %w", err)
	}

	s.remember(rec)
	if s.OnCreated != nil {
		s.OnCreated(ctx, rec)
	}
	return rec, nil
}

// stored returns (nil, nil) on a miss.
func (s *Service) stored(ctx context.Context, t domain.ScanType, key string) (*domain.ScanRecord, error) {
	if s.Cache != nil {
		if rec, ok := s.Cache.Get(t, key); ok {
			return rec, nil
		}
	}
	rec, err := s.Repo.FindByTypeAndKey(ctx, t, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding scan record: %w", err)
	}
	s.remember(rec)
	return rec, nil
}

func (s *Service) remember(rec *domain.ScanRecord) {
	if s.Cache != nil && rec != nil {
		s.Cache.Add(rec)
	}
}

// now is truncated to microseconds so a re-read row compares equal.
func (s *Service) now() time.Time {
	var t time.Time
	if s.Clock != nil {
		t = s.Clock.Now()
	} else {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Microsecond)
}

// rawBody keeps the upstream bytes; a client without them gets the payload re-encoded.
func rawBody(res *domain.LookupResult) (json.RawMessage, error) {
	if len(res.Body) > 0 && json.Valid(res.Body) {
		return res.Body, nil
	}
	b, err := json.Marshal(res.Payload)
	if err != nil {
		return nil, fmt.Errorf("encoding raw payload: %w", err)
	}
	return b, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
