// Package virustotal is the only component that talks to the VirusTotal v3 API.
// It owns the retry discipline and maps upstream failures to the scans error taxonomy.
package virustotal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

const (
	DefaultBaseURL     = "https://www.virustotal.com/api/v3"
	DefaultTimeout     = 20 * time.Second
	DefaultMaxAttempts = 3

	maxBodyBytes  = 4 << 20
	maxErrorBytes = 2048
	stubSource    = "stub_no_api_key"
)

// Mode selects between real lookups and the offline stub.
type Mode string

const (
	ModeLive Mode = "live"
	ModeStub Mode = "stub"
)

type Options struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration // per request
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Mode        Mode
	HTTPClient  *http.Client
}

// Client is safe for concurrent use; it holds configuration only.
type Client struct {
	apiKey      string
	baseURL     string
	mode        Mode
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
	httpClient  *http.Client
	sleep       func(ctx context.Context, d time.Duration) error
}

func New(opts Options) (*Client, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeLive
	}
	if mode != ModeLive && mode != ModeStub {
		return nil, fmt.Errorf("virustotal: unknown mode %q", mode)
	}
	key := strings.TrimSpace(opts.APIKey)
	if mode == ModeLive && key == "" {
		return nil, errors.New("virustotal: live mode requires an api key")
	}

	c := &Client{
		apiKey:      key,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		mode:        mode,
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
		backoffCap:  opts.BackoffCap,
		httpClient:  opts.HTTPClient,
		sleep:       sleepContext,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.backoffBase <= 0 {
		c.backoffBase = DefaultBackoffBase
	}
	if c.backoffCap <= 0 {
		c.backoffCap = DefaultBackoffCap
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{MaxIdleConnsPerHost: 10},
		}
	}
	return c, nil
}

func (c *Client) Mode() Mode { return c.mode }

// LookupURL queries the URL report. The URL identifier is the unpadded
// base64url form of the URL, as defined by the v3 API. A URL the service has
// never seen answers 404; it is then submitted and the submission answer is
// returned.
func (c *Client) LookupURL(ctx context.Context, normalizedURL string) (*domain.LookupResult, error) {
	if c.mode == ModeStub {
		return stubResult(domain.RawPayload{
			"source": stubSource,
			"stats":  stubStats(0, 1, 0),
			"url":    normalizedURL,
		})
	}
	id := base64.RawURLEncoding.EncodeToString([]byte(normalizedURL))
	res, err := c.withRetry(ctx, func() (*domain.LookupResult, error) {
		return c.do(ctx, http.MethodGet, c.baseURL+"/urls/"+id, "")
	})
	if !isNotFound(err) {
		return res, err
	}
	form := url.Values{"url": {normalizedURL}}.Encode()
	return c.withRetry(ctx, func() (*domain.LookupResult, error) {
		return c.do(ctx, http.MethodPost, c.baseURL+"/urls", form)
	})
}

// LookupFileHash queries the file report by digest. File content is never sent.
func (c *Client) LookupFileHash(ctx context.Context, sha256Hex string) (*domain.LookupResult, error) {
	if c.mode == ModeStub {
		return stubResult(domain.RawPayload{
			"source": stubSource,
			"stats":  stubStats(0, 0, 1),
			"sha256": sha256Hex,
		})
	}
	return c.withRetry(ctx, func() (*domain.LookupResult, error) {
		return c.do(ctx, http.MethodGet, c.baseURL+"/files/"+sha256Hex, "")
	})
}

func stubStats(malicious, suspicious, harmless int) map[string]any {
	return map[string]any{
		"malicious":  malicious,
		"suspicious": suspicious,
		"harmless":   harmless,
		"undetected": 0,
	}
}

func stubResult(p domain.RawPayload) (*domain.LookupResult, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("virustotal: encoding stub payload: %w", err)
	}
	return &domain.LookupResult{Payload: p, Body: body}, nil
}

func isNotFound(err error) bool {
	var ue *domain.UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound
}

// withRetry retries 429 and timeouts with exponential backoff between
// attempts; every other failure is returned right away.
func (c *Client) withRetry(ctx context.Context, call func() (*domain.LookupResult, error)) (*domain.LookupResult, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		res, err := call()
		if err == nil {
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !retriable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		if err := c.sleep(ctx, Delay(attempt, c.backoffBase, c.backoffCap)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts", lastErr, c.maxAttempts)
}

func retriable(err error) bool {
	return errors.Is(err, domain.ErrRateLimitExceeded) || errors.Is(err, domain.ErrUpstreamTimeout)
}

// do performs exactly one request. form, when set, is sent url-encoded.
func (c *Client) do(ctx context.Context, method, reqURL, form string) (*domain.LookupResult, error) {
	var body io.Reader = http.NoBody
	if form != "" {
		body = strings.NewReader(form)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, &domain.UpstreamError{Body: err.Error()}
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBytes))
		return nil, domain.ErrRateLimitExceeded
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, domain.ErrUpstreamTimeout
		}
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: "reading body: " + err.Error()}
	}
	if len(raw) > maxBodyBytes {
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: "body larger than 4 MiB"}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload domain.RawPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: "invalid JSON body: " + err.Error()}
	}
	if payload == nil {
		payload = domain.RawPayload{}
	}
	return &domain.LookupResult{Payload: payload, Body: bytes.TrimSpace(raw)}, nil
}

func classifyTransport(err error) error {
	if isTimeout(err) {
		return domain.ErrUpstreamTimeout
	}
	return &domain.UpstreamError{Body: err.Error()}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
