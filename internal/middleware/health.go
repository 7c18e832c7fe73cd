package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const dependencyTimeout = 2 * time.Second

// Check reports one dependency of the scan service; nil means reachable.
type Check func(ctx context.Context) error

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func PingCheck(p Pinger) Check {
	return p.PingContext
}

// DependencyStatus hasil satu check
type DependencyStatus struct {
	State     string `json:"state"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthReport struct {
	Status         string                      `json:"status"`
	ReputationMode string                      `json:"reputation_mode,omitempty"`
	CheckedAt      time.Time                   `json:"checked_at"`
	Dependencies   map[string]DependencyStatus `json:"dependencies"`
}

// Healthy true kalau semua dependency up.
func (r HealthReport) Healthy() bool { return r.Status == "up" }

// Failing lists the names of the dependencies that are down, sorted.
func (r HealthReport) Failing() []string {
	var out []string
	for name, d := range r.Dependencies {
		if d.State != "up" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Health runs the dependency checks behind /health and /ready.
// The zero value has no checks and always reports up.
type Health struct {
	Checks         map[string]Check
	ReputationMode string
	Timeout        time.Duration // per check
	Now            func() time.Time
}

// Run executes every check concurrently, each under its own timeout.
func (h *Health) Run(ctx context.Context) HealthReport {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = dependencyTimeout
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	report := HealthReport{
		Status:         "up",
		ReputationMode: h.ReputationMode,
		CheckedAt:      now().UTC(),
		Dependencies:   make(map[string]DependencyStatus, len(h.Checks)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for name, check := range h.Checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := check(cctx)
			st := DependencyStatus{State: "up", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				st.State = "down"
				st.Error = err.Error()
			}

			mu.Lock()
			report.Dependencies[name] = st
			if err != nil {
				report.Status = "down"
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return report
}

// Handler serves the full report; 503 while any dependency is down.
func (h *Health) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Run(r.Context())
		code := http.StatusOK
		if !report.Healthy() {
			code = http.StatusServiceUnavailable
		}
		writeHealthJSON(w, code, report)
	}
}

// ReadyHandler gates traffic on the same checks but only names the failures.
func (h *Health) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Run(r.Context())
		if !report.Healthy() {
			writeHealthJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  "not_ready",
				"failing": report.Failing(),
			})
			return
		}
		writeHealthJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// LivenessHandler never touches dependencies.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeHealthJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
