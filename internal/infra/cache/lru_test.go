package cache

import (
	"testing"
	"time"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

func TestRecordCacheHitAndMiss(t *testing.T) {
	c := NewRecordCache(4, time.Minute)
	rec := &domain.ScanRecord{ID: "1", ScanType: domain.ScanTypeURL, ScanKey: "https://example.com"}
	c.Add(rec)

	got, ok := c.Get(domain.ScanTypeURL, "https://example.com")
	if !ok || got.ID != "1" {
		t.Fatalf("expected hit, got %v %v", got, ok)
	}
	if _, ok := c.Get(domain.ScanTypeFile, "https://example.com"); ok {
		t.Fatal("scan type must be part of the key")
	}
}

func TestRecordCacheEvictsOldest(t *testing.T) {
	c := NewRecordCache(2, time.Minute)
	for _, k := range []string{"a", "b", "c"} {
		c.Add(&domain.ScanRecord{ID: domain.ScanID(k), ScanType: domain.ScanTypeFile, ScanKey: k})
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	if _, ok := c.Get(domain.ScanTypeFile, "a"); ok {
		t.Fatal("oldest entry should be evicted")
	}
}

func TestRecordCacheExpires(t *testing.T) {
	c := NewRecordCache(4, 20*time.Millisecond)
	c.Add(&domain.ScanRecord{ID: "1", ScanType: domain.ScanTypeURL, ScanKey: "k"})
	time.Sleep(80 * time.Millisecond)
	if _, ok := c.Get(domain.ScanTypeURL, "k"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestRecordCacheIgnoresNil(t *testing.T) {
	c := NewRecordCache(0, 0)
	c.Add(nil)
	if c.Len() != 0 {
		t.Fatal("nil record must not be cached")
	}
}
