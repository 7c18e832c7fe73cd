package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/ai"
	"github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

func testRecord() *scans.ScanRecord {
	return &scans.ScanRecord{
		ID:       "scan-1",
		ScanType: scans.ScanTypeURL,
		ScanKey:  "https://example.com",
		Status:   scans.StatusMalicious,
		Score:    90,
		Summary:  "Multiple security engines flagged this target as malicious.",
	}
}

func TestAdviseReturnsContent(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"risk_level\":\"high\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("key", "", srv.URL+"/v1")
	out, err := c.Advise(context.Background(), testRecord())
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if out != `{"risk_level":"high"}` {
		t.Fatalf("content = %q", out)
	}
	if gotModel != DefaultModel || c.ModelName() != DefaultModel {
		t.Fatalf("model = %q", gotModel)
	}
}

func TestAdviseMapsQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("key", "gpt-4o-mini", srv.URL+"/v1")
	_, err := c.Advise(context.Background(), testRecord())
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestAdviseEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("key", "gpt-4o-mini", srv.URL+"/v1")
	if _, err := c.Advise(context.Background(), testRecord()); !errors.Is(err, domain.ErrEmptyAdvice) {
		t.Fatalf("err = %v, want ErrEmptyAdvice", err)
	}
}

func TestIsReasoningModel(t *testing.T) {
	for model, want := range map[string]bool{"o3-mini": true, "gpt-5": true, "gpt-4o-mini": false} {
		if got := isReasoningModel(model); got != want {
			t.Errorf("isReasoningModel(%q) = %v", model, got)
		}
	}
}
