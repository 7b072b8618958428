// Package api is the single point of HTTP egress to the finance backend.
//
// Every call carries the caller's session continuity tokens, mutating calls
// carry the anti-forgery header, list envelopes are normalized to slices and
// HTTP 401 responses are reported to a process-wide hook.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dotproduct/internal/log"
)

const (
	// Cookie names the backend uses for session continuity.
	BackendSessionCookie = "sessionid"
	BackendCSRFCookie    = "csrftoken"

	CSRFHeader = "X-CSRFToken"

	maxBodyBytes = 4 << 20
)

// Tokens are the per-browser credentials forwarded to the backend.
type Tokens struct {
	SessionID string
	CSRFToken string
}

func (t Tokens) Empty() bool {
	return t.SessionID == ""
}

// UnauthorizedFunc is invoked whenever an authenticated call returns 401.
type UnauthorizedFunc func(ctx context.Context)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	logger         *log.Logger
	onUnauthorized UnauthorizedFunc
}

func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", base.Scheme)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClientWithPooling(cfg.Timeout)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		logger:     logger.WithComponent(log.ComponentAPI),
	}, nil
}

// OnUnauthorized installs the process-wide 401 hook. Call once at startup.
func (c *Client) OnUnauthorized(fn UnauthorizedFunc) {
	c.onUnauthorized = fn
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
// and keep-alive for the single backend host.
func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

type request struct {
	method string
	path   string
	query  url.Values
	tokens Tokens
	body   any
	// credentialCall marks login/register, where 401 means bad credentials
	// rather than an expired session.
	credentialCall bool
}

type response struct {
	status  int
	header  http.Header
	cookies []*http.Cookie
	body    []byte
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (c *Client) do(ctx context.Context, req request) (*response, error) {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
	if err != nil {
		return nil, &Error{Method: req.method, Path: req.path, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.tokens.SessionID != "" {
		httpReq.AddCookie(&http.Cookie{Name: BackendSessionCookie, Value: req.tokens.SessionID})
	}
	if req.tokens.CSRFToken != "" {
		httpReq.AddCookie(&http.Cookie{Name: BackendCSRFCookie, Value: req.tokens.CSRFToken})
		if isMutating(req.method) {
			httpReq.Header.Set(CSRFHeader, req.tokens.CSRFToken)
			// The backend's CSRF check requires a same-origin Referer over HTTPS.
			httpReq.Header.Set("Referer", c.baseURL.Scheme+"://"+c.baseURL.Host+"/")
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend request failed",
			log.FieldMethod, req.method,
			log.FieldPath, req.path,
			log.FieldError, err)
		return nil, &Error{Method: req.method, Path: req.path, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Method: req.method, Path: req.path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.DebugContext(ctx, "Backend request completed",
		log.FieldMethod, req.method,
		log.FieldPath, req.path,
		log.FieldBackendStatus, httpResp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if httpResp.StatusCode >= 400 {
		apiErr := &Error{
			Status: httpResp.StatusCode,
			Method: req.method,
			Path:   req.path,
			Detail: parseDetail(data),
		}
		if httpResp.StatusCode == http.StatusUnauthorized && !req.credentialCall && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return nil, apiErr
	}

	return &response{
		status:  httpResp.StatusCode,
		header:  httpResp.Header,
		cookies: httpResp.Cookies(),
		body:    data,
	}, nil
}

// call performs req and decodes a JSON object response into out (when non-nil).
func (c *Client) call(ctx context.Context, req request, out any) (*response, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if out != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
		}
	}
	return resp, nil
}

func list[T any](ctx context.Context, c *Client, path string, query url.Values, tokens Tokens) ([]T, error) {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query, tokens: tokens})
	if err != nil {
		return nil, err
	}
	items, err := decodeList[T](resp.body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return items, nil
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/health/"})
	return err
}

// IsTransport reports whether err is a network-level failure rather than an
// HTTP error response.
func IsTransport(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 0
}
