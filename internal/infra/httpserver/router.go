package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	appai "github.com/bryanwahyu/cyberguard/internal/application/ai"
	appscans "github.com/bryanwahyu/cyberguard/internal/application/scans"
	domai "github.com/bryanwahyu/cyberguard/internal/domain/ai"
	"github.com/bryanwahyu/cyberguard/internal/domain/analyst"
	"github.com/bryanwahyu/cyberguard/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
	"github.com/bryanwahyu/cyberguard/internal/middleware"
)

const (
	defaultMaxUpload = 10 << 20
	multipartSlack   = 1 << 20
	retryAfterSecs   = "60"
	errorLogTimeout  = 3 * time.Second
)

// Options for the HTTP surface; zero values are usable.
type Options struct {
	MaxUploadBytes int64
	Health         *middleware.Health
}

type Router struct {
	scansSvc   *appscans.Service
	aiSvc      *appai.Service
	scanErrors scanerrors.Repository
	maxUpload  int64
}

// NewRouter wires the scan API. aiSvc and scanErrors may be nil.
func NewRouter(scansSvc *appscans.Service, aiSvc *appai.Service, scanErrors scanerrors.Repository, opts Options) http.Handler {
	r := &Router{scansSvc: scansSvc, aiSvc: aiSvc, scanErrors: scanErrors, maxUpload: opts.MaxUploadBytes}
	if r.maxUpload <= 0 {
		r.maxUpload = defaultMaxUpload
	}
	health := opts.Health
	if health == nil {
		health = &middleware.Health{}
	}

	mux := chi.NewRouter()
	mux.Get("/health", health.Handler())
	mux.Get("/ready", health.ReadyHandler())
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/api/v1", func(rt chi.Router) {
		rt.Post("/scan/url", r.wrap(r.handleScanURL))
		rt.Post("/scan/file", r.wrap(r.handleScanFile))
		rt.Get("/scan/{id}", r.wrap(r.handleGet))
		rt.Get("/scans/recent", r.wrap(r.handleRecent))
		if aiSvc != nil {
			rt.Post("/scan/{id}/advice", r.wrap(r.handleAdvise))
			rt.Get("/scan/{id}/advice", r.wrap(r.handleLatestAdvice))
		}
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError is a boundary failure with a fixed status and client message.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, msg := statusFor(err)
			if status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", retryAfterSecs)
			}
			if status >= http.StatusInternalServerError {
				log.Printf("request_id=%s method=%s path=%s status=%d error=%q",
					chimw.GetReqID(req.Context()), req.Method, req.URL.Path, status, err.Error())
			}
			writeJSON(w, status, map[string]string{"error": msg})
		}
	}
}

// statusFor maps the error taxonomy onto HTTP; internal details stay in the log.
func statusFor(err error) (int, string) {
	var he *httpError
	var ue *domain.UpstreamError
	switch {
	case errors.As(err, &he):
		return he.status, he.msg
	case errors.Is(err, domain.ErrInvalidKeyInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, "reputation service rate limit exceeded, try again later"
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "ai quota exceeded"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "reputation service timed out"
	case errors.As(err, &ue):
		return http.StatusBadGateway, "reputation service error"
	case errors.Is(err, domai.ErrEmptyAdvice):
		return http.StatusBadGateway, "ai returned no advice"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// errorKind label dipakai untuk metrics dan tabel scan_errors
func errorKind(err error) string {
	var ue *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidKeyInput):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return "timeout"
	case errors.As(err, &ue):
		return "upstream"
	default:
		return "other"
	}
}

// POST /api/v1/scan/url
// Body: {"url": "<url>"}
func (r *Router) handleScanURL(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, multipartSlack)).Decode(&body); err != nil {
		return badRequest("invalid json body")
	}
	if err := middleware.ValidateURLInput(body.URL); err != nil {
		return badRequest("%s", err.Error())
	}
	original := middleware.SanitizeString(body.URL)
	normalized, err := domain.NormalizeURL(original)
	if err != nil {
		middleware.ObserveScan(string(domain.ScanTypeURL), errorKind(err))
		return err
	}
	if err := middleware.ValidateScanKey(normalized); err != nil {
		return badRequest("%s", err.Error())
	}

	rec, err := r.scansSvc.ScanURL(req.Context(), original, normalized)
	if err != nil {
		r.recordFailure(req.Context(), domain.ScanTypeURL, normalized, err)
		return err
	}
	middleware.ObserveScan(string(domain.ScanTypeURL), strings.ToLower(string(rec.Status)))
	return writeJSON(w, http.StatusOK, toScanResponse(rec))
}

// POST /api/v1/scan/file (multipart, field "file")
func (r *Router) handleScanFile(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+multipartSlack)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return r.tooLarge()
		}
		return badRequest("invalid multipart body")
	}
	defer func() {
		if req.MultipartForm != nil {
			_ = req.MultipartForm.RemoveAll()
		}
	}()

	f, hdr, err := req.FormFile("file")
	if err != nil {
		return badRequest("file field is required")
	}
	defer f.Close()
	if hdr.Size > r.maxUpload {
		return r.tooLarge()
	}
	content, err := io.ReadAll(io.LimitReader(f, r.maxUpload+1))
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(content)) > r.maxUpload {
		return r.tooLarge()
	}
	if len(content) == 0 {
		return badRequest("uploaded file is empty")
	}

	rec, err := r.scansSvc.ScanFileHash(req.Context(), middleware.SanitizeFilename(hdr.Filename), content)
	if err != nil {
		r.recordFailure(req.Context(), domain.ScanTypeFile, domain.FileKey(content), err)
		return err
	}
	middleware.ObserveScan(string(domain.ScanTypeFile), strings.ToLower(string(rec.Status)))
	return writeJSON(w, http.StatusOK, toScanResponse(rec))
}

func (r *Router) tooLarge() error {
	return &httpError{
		status: http.StatusRequestEntityTooLarge,
		msg:    fmt.Sprintf("file larger than %d MB", r.maxUpload>>20),
	}
}

// GET /api/v1/scan/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := scanIDParam(req)
	if err != nil {
		return err
	}
	rec, err := r.scansSvc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, toScanResponse(rec))
}

// GET /api/v1/scans/recent?limit=10
func (r *Router) handleRecent(w http.ResponseWriter, req *http.Request) error {
	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return badRequest("limit must be an integer")
		}
		limit = n
	}
	list, err := r.scansSvc.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	out := make([]scanResponse, 0, len(list))
	for _, rec := range list {
		out = append(out, toScanResponse(rec))
	}
	return writeJSON(w, http.StatusOK, out)
}

// POST /api/v1/scan/{id}/advice
func (r *Router) handleAdvise(w http.ResponseWriter, req *http.Request) error {
	id, err := scanIDParam(req)
	if err != nil {
		return err
	}
	a, err := r.aiSvc.AdviseAndStore(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, toAdviceResponse(a))
}

// GET /api/v1/scan/{id}/advice
func (r *Router) handleLatestAdvice(w http.ResponseWriter, req *http.Request) error {
	id, err := scanIDParam(req)
	if err != nil {
		return err
	}
	a, err := r.aiSvc.Latest(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, toAdviceResponse(a))
}

func scanIDParam(req *http.Request) (domain.ScanID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateScanID(id); err != nil {
		return "", badRequest("%s", err.Error())
	}
	return domain.ScanID(id), nil
}

// recordFailure logs an upstream failure and keeps it for diagnostics.
// It is never read back by the scan flow.
func (r *Router) recordFailure(ctx context.Context, t domain.ScanType, key string, err error) {
	kind := errorKind(err)
	middleware.ObserveScan(string(t), kind)
	if kind == "invalid" || kind == "canceled" {
		return
	}
	log.Printf("request_id=%s scan_type=%s scan_key=%q kind=%s error=%q",
		chimw.GetReqID(ctx), t, key, kind, err.Error())
	if r.scanErrors == nil {
		return
	}

	details := map[string]any{"error": err.Error()}
	entry := &scanerrors.ScanError{
		ScanType:  string(t),
		ScanKey:   key,
		Kind:      kind,
		Message:   err.Error(),
		CreatedAt: time.Now().UTC(),
	}
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		entry.StatusCode = ue.StatusCode
		details["status_code"] = ue.StatusCode
		details["body"] = ue.Body
	}
	if b, jerr := json.Marshal(details); jerr == nil {
		entry.DetailsJSON = string(b)
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorLogTimeout)
	defer cancel()
	if serr := r.scanErrors.Save(saveCtx, entry); serr != nil {
		log.Printf("scan_error save failed: scan_type=%s kind=%s err=%v", t, kind, serr)
	}
}

type scanResponse struct {
	ScanID    string    `json:"scan_id"`
	ScanType  string    `json:"scan_type"`
	Status    string    `json:"status"`
	Score     int       `json:"score"`
	Summary   string    `json:"summary"`
	Reasons   []string  `json:"reasons"`
	CreatedAt time.Time `json:"created_at"`
}

func toScanResponse(rec *domain.ScanRecord) scanResponse {
	reasons := rec.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return scanResponse{
		ScanID:    string(rec.ID),
		ScanType:  string(rec.ScanType),
		Status:    string(rec.Status),
		Score:     rec.Score,
		Summary:   rec.Summary,
		Reasons:   reasons,
		CreatedAt: rec.CreatedAt,
	}
}

type adviceResponse struct {
	ID        string          `json:"id"`
	ScanID    string          `json:"scan_id"`
	Model     string          `json:"model"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

func toAdviceResponse(a *analyst.Analysis) adviceResponse {
	result := json.RawMessage(a.Result)
	if !json.Valid(result) {
		// model ignored the json instruction; return it as a string
		result, _ = json.Marshal(a.Result)
	}
	return adviceResponse{
		ID:        string(a.ID),
		ScanID:    a.ScanID,
		Model:     a.Model,
		Result:    result,
		CreatedAt: a.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
