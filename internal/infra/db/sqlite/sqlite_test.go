package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bryanwahyu/cyberguard/internal/domain/analyst"
	"github.com/bryanwahyu/cyberguard/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "scans.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func sampleRecord(id, key string, at time.Time) *domain.ScanRecord {
	return &domain.ScanRecord{
		ID:            domain.ScanID(id),
		ScanType:      domain.ScanTypeURL,
		ScanKey:       key,
		OriginalInput: key,
		Status:        domain.StatusSuspicious,
		Score:         65,
		Summary:       "At least one indicator appears suspicious.",
		Reasons:       []string{"a", "b"},
		RawResponse:   json.RawMessage(`{"stats":{"suspicious":1}}`),
		CreatedAt:     at,
	}
}

func TestScanRepositoryRoundTrip(t *testing.T) {
	repo := NewScanRepository(openTestDB(t))
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 123000, time.UTC)

	rec := sampleRecord("id-1", "https://example.com", at)
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.FindByTypeAndKey(ctx, domain.ScanTypeURL, "https://example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != rec.ID || got.Status != rec.Status || got.Score != rec.Score {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(got.Reasons) != 2 || got.Reasons[1] != "b" {
		t.Fatalf("reasons = %v", got.Reasons)
	}
	if !got.CreatedAt.Equal(at) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, at)
	}
	if string(got.RawResponse) != `{"stats":{"suspicious":1}}` {
		t.Fatalf("raw = %s", got.RawResponse)
	}

	byID, err := repo.Get(ctx, "id-1")
	if err != nil || byID.ScanKey != rec.ScanKey {
		t.Fatalf("get: %v %+v", err, byID)
	}
}

func TestScanRepositoryNotFound(t *testing.T) {
	repo := NewScanRepository(openTestDB(t))
	ctx := context.Background()

	if _, err := repo.FindByTypeAndKey(ctx, domain.ScanTypeFile, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("find err = %v", err)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get err = %v", err)
	}
}

func TestScanRepositoryDuplicateKey(t *testing.T) {
	repo := NewScanRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Insert(ctx, sampleRecord("id-1", "https://dup.example", now)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := repo.Insert(ctx, sampleRecord("id-2", "https://dup.example", now))
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("second insert err = %v, want ErrDuplicateKey", err)
	}

	// same key under another type is a different record
	other := sampleRecord("id-3", "https://dup.example", now)
	other.ScanType = domain.ScanTypeFile
	if err := repo.Insert(ctx, other); err != nil {
		t.Fatalf("other type insert: %v", err)
	}
}

func TestScanRepositoryLatest(t *testing.T) {
	repo := NewScanRepository(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, key := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		rec := sampleRecord("id-"+key[8:9], key, base.Add(time.Duration(i)*time.Minute))
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", key, err)
		}
	}

	got, err := repo.Latest(ctx, 2)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(got) != 2 || got[0].ScanKey != "https://c.example" || got[1].ScanKey != "https://b.example" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestScanErrorRepository(t *testing.T) {
	repo := NewScanErrorRepository(openTestDB(t))
	ctx := context.Background()

	e := &scanerrors.ScanError{
		ScanType:    "url",
		ScanKey:     "https://example.com",
		Kind:        "upstream",
		StatusCode:  503,
		Message:     "upstream returned 503",
		DetailsJSON: "not json",
	}
	if err := repo.Save(ctx, e); err != nil {
		t.Fatalf("save: %v", err)
	}
	if e.ID == 0 {
		t.Fatal("expected generated id")
	}

	list, err := repo.ListByKey(ctx, "url", "https://example.com", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].StatusCode != 503 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0].DetailsJSON != `{"raw":"not json"}` {
		t.Fatalf("details = %s", list[0].DetailsJSON)
	}
}

func TestAnalystRepository(t *testing.T) {
	repo := NewAnalystRepository(openTestDB(t))
	ctx := context.Background()

	none, err := repo.LatestByScan(ctx, "scan-1")
	if err != nil || none != nil {
		t.Fatalf("expected nil analysis, got %+v err=%v", none, err)
	}

	a := &analyst.Analysis{ID: "a-1", ScanID: "scan-1", Model: "gpt-4o-mini", Result: `{"advice":"x"}`}
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	a.Result = `{"advice":"y"}`
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.LatestByScan(ctx, "scan-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || got.Result != `{"advice":"y"}` {
		t.Fatalf("unexpected analysis: %+v", got)
	}
}
