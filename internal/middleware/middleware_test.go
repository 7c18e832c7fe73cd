package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()
	h := rl.Middleware(okHandler())

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/url", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if do("10.0.0.1") != http.StatusOK || do("10.0.0.1") != http.StatusOK {
		t.Fatal("burst requests should pass")
	}
	if code := do("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", code)
	}
	if do("10.0.0.2") != http.StatusOK {
		t.Fatal("other client must have its own budget")
	}
}

func TestRateLimiterSkipsProbes(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	h := rl.Middleware(okHandler())
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("probe %d got %d", i, rec.Code)
		}
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	rl.Allow("a")
	rl.sweep(time.Now().Add(limiterIdleTTL + time.Minute))
	rl.mu.Lock()
	n := len(rl.visitors)
	rl.mu.Unlock()
	if n != 0 {
		t.Fatalf("visitors after sweep = %d", n)
	}
}

type failingPinger struct{ err error }

func (p failingPinger) PingContext(context.Context) error { return p.err }

func TestHealthReportsEachDependency(t *testing.T) {
	h := &Health{
		Checks: map[string]Check{
			"database": PingCheck(failingPinger{}),
			"archive":  PingCheck(failingPinger{err: errors.New("bucket missing")}),
		},
		ReputationMode: "stub",
	}
	rec := httptest.NewRecorder()
	h.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var report HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.ReputationMode != "stub" || report.Status != "down" {
		t.Fatalf("report = %+v", report)
	}
	if report.Dependencies["database"].State != "up" {
		t.Errorf("database = %+v", report.Dependencies["database"])
	}
	if d := report.Dependencies["archive"]; d.State != "down" || d.Error != "bucket missing" {
		t.Errorf("archive = %+v", d)
	}
}

func TestHealthCheckTimeout(t *testing.T) {
	h := &Health{
		Checks: map[string]Check{
			"database": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
		Timeout: 20 * time.Millisecond,
	}
	start := time.Now()
	report := h.Run(context.Background())
	if report.Healthy() {
		t.Fatal("hanging check reported up")
	}
	if time.Since(start) > time.Second {
		t.Errorf("check was not bounded by its timeout")
	}
}

func TestReadyFollowsChecks(t *testing.T) {
	down := &Health{Checks: map[string]Check{
		"database": PingCheck(failingPinger{err: errors.New("down")}),
	}}
	rec := httptest.NewRecorder()
	down.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"database"`) {
		t.Fatalf("not ready: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	(&Health{}).ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d", rec.Code)
	}
}

func TestValidateScanID(t *testing.T) {
	if err := ValidateScanID("3f8a4b1e-2c7d-4e9f-8a6b-1d2c3e4f5a6b"); err != nil {
		t.Fatalf("valid id rejected: %v", err)
	}
	for _, id := range []string{"", "abc", "../../etc/passwd"} {
		if ValidateScanID(id) == nil {
			t.Errorf("%q should be rejected", id)
		}
	}
}

func TestValidateLimit(t *testing.T) {
	cases := map[int]int{0: 10, -3: 10, 5: 5, 100: 100, 500: 100}
	for in, want := range cases {
		if got := ValidateLimit(in); got != want {
			t.Errorf("ValidateLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":             "report.pdf",
		"../../etc/passwd":       "passwd",
		`C:\Users\me\evil.exe`:   "evil.exe",
		"":                       "upload.bin",
		"bad\x00name\x01.txt":    "badname.txt",
		strings.Repeat("a", 300): strings.Repeat("a", 255),
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateURLInput(t *testing.T) {
	if ValidateURLInput("  ") == nil {
		t.Error("blank url accepted")
	}
	if ValidateURLInput("https://example.com/"+strings.Repeat("x", 3000)) == nil {
		t.Error("oversized url accepted")
	}
	if err := ValidateURLInput("example.com"); err != nil {
		t.Errorf("plain host rejected: %v", err)
	}
}

func TestValidateScanKey(t *testing.T) {
	if err := ValidateScanKey("https://example.com/" + strings.Repeat("x", 2000)); err != nil {
		t.Errorf("key within limit rejected: %v", err)
	}
	if ValidateScanKey("https://example.com/"+strings.Repeat("%C3%A4", 400)) == nil {
		t.Error("oversized key accepted")
	}
}
