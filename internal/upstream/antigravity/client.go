// Package antigravity speaks the Cloud Code v1internal surface: streaming and
// unary generateContent plus the model catalog. One client is shared by all
// requests; per-call state travels in the payload and bearer token.
package antigravity

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	mw "antigravity2api-go/internal/middleware"
	"antigravity2api-go/internal/monitoring/tracing"
	"antigravity2api-go/internal/netutil"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Client struct {
	cfg *config.Manager
	cli *http.Client
}

// New builds the shared upstream client. The transport prefers IPv4 because
// the upstream endpoint publishes AAAA records that are unreachable from many
// hosting providers.
func New(cfg *config.Manager) *Client {
	proxy := cfg.Get().Secrets.Proxy
	tr := &http.Transport{
		Proxy:                 getProxyFunc(proxy),
		DialContext:           netutil.PreferIPv4Dialer(constants.DefaultDialTimeout, constants.DefaultKeepAlive),
		TLSHandshakeTimeout:   constants.DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: constants.DefaultResponseHeaderTimeout,
		ExpectContinueTimeout: constants.DefaultExpectContinueTimeout,
		MaxIdleConns:          constants.MaxIdleConns,
		MaxIdleConnsPerHost:   constants.MaxIdleConnsPerHost,
		IdleConnTimeout:       constants.IdleConnTimeout,
	}
	// Streaming calls have no overall deadline; callers bound unary calls
	// through the context.
	return &Client{cfg: cfg, cli: &http.Client{Transport: tr, Timeout: 0}}
}

// getProxyFunc returns appropriate proxy function based on configuration
func getProxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL != "" {
		if parsedURL, err := url.Parse(proxyURL); err == nil {
			return http.ProxyURL(parsedURL)
		}
	}
	return http.ProxyFromEnvironment
}

// Stream opens the SSE generate call.
//
// IMPORTANT: Caller MUST close resp.Body if resp is non-nil and err is nil.
func (c *Client) Stream(ctx context.Context, payload []byte, accessToken string) (*http.Response, error) {
	return c.postJSON(ctx, "stream", c.cfg.Get().API.URL, payload, accessToken)
}

// Generate performs the unary generate call.
//
// IMPORTANT: Caller MUST close resp.Body if resp is non-nil and err is nil.
func (c *Client) Generate(ctx context.Context, payload []byte, accessToken string) (*http.Response, error) {
	return c.postJSON(ctx, "generate", c.cfg.Get().API.NoStreamURL, payload, accessToken)
}

// applyHeaders sets the fingerprint the upstream expects. Accept-Encoding is
// set by hand, so the transport will not transparently decompress; decodeBody
// handles that after each call.
func (c *Client) applyHeaders(req *http.Request, cfg *config.Config, accessToken string) {
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("Accept-Encoding", "gzip")
	ua := strings.TrimSpace(cfg.API.UserAgent)
	if ua == "" {
		ua = constants.DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if host := strings.TrimSpace(cfg.API.Host); host != "" {
		req.Host = host
	}
}

// postJSON sends a POST request with JSON body and one OTel span covering all
// retry attempts.
//
// IMPORTANT: Caller is responsible for closing resp.Body if resp is non-nil
// and err is nil. On error, the response body (if any) is already closed.
func (c *Client) postJSON(ctx context.Context, endpoint, rawURL string, payload []byte, accessToken string) (*http.Response, error) {
	spanCtx, span := tracing.StartSpan(ctx, "upstream/antigravity", "Antigravity.PostJSON",
		trace.WithAttributes(
			attribute.String("http.method", http.MethodPost),
			attribute.String("http.url", rawURL),
			attribute.String("upstream.endpoint", endpoint),
		))
	defer span.End()
	ctx = spanCtx

	resp, err, _, status, tries := c.doAttempt(ctx, endpoint, rawURL, payload, accessToken)
	if model := gjson.GetBytes(payload, "model").String(); model != "" {
		mw.RecordUpstreamModel(model, status, err != nil)
	}
	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Int("upstream.retry_total", tries),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	if status >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("http_status=%d", status))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if resp != nil {
		if derr := decodeBody(resp); derr != nil {
			_ = resp.Body.Close()
			span.RecordError(derr)
			return nil, derr
		}
	}
	return resp, nil
}

// doAttempt executes the HTTP call with the 429 retry policy applied.
// It returns the final response, error, duration of the last attempt, HTTP
// status code, and retry count.
func (c *Client) doAttempt(ctx context.Context, endpoint, rawURL string, payload []byte, accessToken string) (*http.Response, error, time.Duration, int, int) {
	cfg := c.cfg.Get()

	makeReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		if strings.Contains(rawURL, "alt=sse") {
			req.Header.Set("Accept", "text/event-stream")
		} else {
			req.Header.Set("Accept", "application/json")
		}
		c.applyHeaders(req, cfg, accessToken)
		return req, nil
	}

	doOnce := func() (*http.Response, error, time.Duration) {
		if err := ctx.Err(); err != nil {
			return nil, err, 0
		}
		req, err := makeReq()
		if err != nil {
			return nil, err, 0
		}
		start := time.Now()
		resp, err := c.cli.Do(req)
		return resp, err, time.Since(start)
	}

	resp, err, dur := doOnce()
	tries := 0
	maxRetries := cfg.Other.RetryTimes
	if maxRetries <= 0 {
		maxRetries = constants.DefaultRetryTimes
	}
	for tries < maxRetries {
		should, wait := shouldRetry(resp, err, tries)
		if !should {
			break
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err(), dur, 0, tries
		case <-time.After(wait):
		}
		tries++
		resp, err, dur = doOnce()
	}

	status := getStatus(resp)
	mw.RecordUpstream(endpoint, dur, status, err != nil)
	if tries > 0 {
		mw.RecordUpstreamRetry(endpoint, tries, err == nil)
	}
	if err != nil {
		mw.RecordUpstreamError(endpoint, classifyErr(err))
	}

	return resp, err, dur, status, tries
}

func getStatus(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// decodeBody swaps resp.Body for a gzip reader when the upstream answered
// compressed. Works for streaming bodies too; gzip flushes at SSE record
// boundaries.
func decodeBody(resp *http.Response) error {
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("gzip response: %w", err)
	}
	resp.Body = &gzipBody{gz: gz, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.ContentLength = -1
	return nil
}

type gzipBody struct {
	gz  *gzip.Reader
	raw io.ReadCloser
}

func (b *gzipBody) Read(p []byte) (int, error) { return b.gz.Read(p) }

func (b *gzipBody) Close() error {
	_ = b.gz.Close()
	return b.raw.Close()
}
