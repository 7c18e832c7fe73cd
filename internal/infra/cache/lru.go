// Package cache keeps recently served scan records in memory so repeated
// lookups of a hot key skip the database round trip.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

const (
	DefaultSize = 1024
	DefaultTTL  = 10 * time.Minute
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cyberguard_record_cache_hits_total",
		Help: "Scan record lookups served from the in-memory cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cyberguard_record_cache_misses_total",
		Help: "Scan record lookups that fell through to storage.",
	})
)

// RecordCache is an LRU of persisted scan records keyed by (scan type, scan key).
// Records are immutable once stored, so TTL only bounds memory, not staleness.
type RecordCache struct {
	lru *expirable.LRU[string, *domain.ScanRecord]
}

// NewRecordCache bikin cache; size/ttl <= 0 pakai default.
func NewRecordCache(size int, ttl time.Duration) *RecordCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RecordCache{lru: expirable.NewLRU[string, *domain.ScanRecord](size, nil, ttl)}
}

func (c *RecordCache) Get(t domain.ScanType, key string) (*domain.ScanRecord, bool) {
	rec, ok := c.lru.Get(cacheKey(t, key))
	if ok {
		cacheHitsTotal.Inc()
		return rec, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

func (c *RecordCache) Add(r *domain.ScanRecord) {
	if r == nil {
		return
	}
	c.lru.Add(cacheKey(r.ScanType, r.ScanKey), r)
}

func (c *RecordCache) Len() int { return c.lru.Len() }

func cacheKey(t domain.ScanType, key string) string {
	return string(t) + "\x00" + key
}
