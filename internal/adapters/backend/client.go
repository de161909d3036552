// Package backend provides the HTTP client for the finance backend's auth and profile endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	domainauth "github.com/findash/findash/internal/domain/auth"
	apperrors "github.com/findash/findash/internal/errors"
	"github.com/findash/findash/internal/observability/metrics"
	"github.com/findash/findash/internal/observability/statsd"
	"github.com/findash/findash/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

// Backend endpoint paths.
const (
	LoginPath   = "/api/auth/login/"
	LogoutPath  = "/api/auth/logout/"
	RefreshPath = "/api/auth/refresh/"
	MePath      = "/api/users/me/"
)

// RequestIDHeader carries the correlation id of a logical request, shared by its replay.
const RequestIDHeader = "X-Request-ID"

const maxResponseBytes = 1 << 20

// defaultRefreshTimeout bounds a shared refresh when no client timeout is configured.
const defaultRefreshTimeout = 30 * time.Second

var _ ports.BackendClient = (*Client)(nil)

// Attempt records whether a request value is being sent for the first time or replayed
// after a credential refresh.
type Attempt int

const (
	FirstAttempt Attempt = iota
	Retried
)

func (a Attempt) String() string {
	if a == Retried {
		return "retried"
	}
	return "first"
}

// Request is one logical call against the backend.
type Request struct {
	Method string
	Path   string
	// Body is sent verbatim as JSON; it is buffered so a replay sends identical bytes.
	Body []byte
	// Attempt is FirstAttempt for new requests.
	Attempt Attempt
	// ID is the X-Request-ID value; assigned on first send when empty.
	ID string
	// NoRefresh marks calls whose 401 must not trigger a refresh (login, logout, refresh).
	NoRefresh bool
}

// Response is a fully read backend response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into dst.
func (r *Response) Decode(dst any) error {
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return fmt.Errorf("decode %d response: %w", r.Status, err)
	}
	return nil
}

// Options groups dependencies for Client.
type Options struct {
	// BaseURL is the backend origin, e.g. "https://finance.example.com".
	BaseURL string
	// HTTPClient is optional; a cookie jar is installed when it has none.
	HTTPClient *http.Client
	// Timeout overrides the transport default when > 0.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Client performs requests against a single backend origin. Session cookies live in
// the client's jar and are never read by application code.
//
// A 401 on a first attempt triggers one refresh; on success the request is replayed
// once as Retried. A failed refresh ends the session: the caller gets a
// SessionExpired error and the expiry handler runs. A 401 on the replay is returned
// as is.
type Client struct {
	base           *url.URL
	http           *http.Client
	logger         *slog.Logger
	metrics        statsd.Sink
	refreshTimeout time.Duration

	refresh singleflight.Group

	mu        sync.RWMutex
	onExpired func(ctx context.Context)
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("backend base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend base URL must be http or https, got %q", base.Scheme)
	}

	hc := &http.Client{}
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		hc = &copied
	}
	if hc.Jar == nil {
		jar, jarErr := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if jarErr != nil {
			return nil, fmt.Errorf("create cookie jar: %w", jarErr)
		}
		hc.Jar = jar
	}
	refreshTimeout := defaultRefreshTimeout
	if opts.Timeout > 0 {
		hc.Timeout = opts.Timeout
		refreshTimeout = opts.Timeout
	}

	return &Client{
		base:           base,
		http:           hc,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		refreshTimeout: refreshTimeout,
	}, nil
}

func (c *Client) log() *slog.Logger {
	if c != nil && c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// OnSessionExpired registers the handler run when a refresh fails.
func (c *Client) OnSessionExpired(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

// Do sends req, refreshing and replaying once on a 401.
// Non-2xx responses are returned together with an Upstream error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusUnauthorized || req.NoRefresh || req.Path == RefreshPath {
		return resp, statusError(resp)
	}

	original := statusError(resp)
	if req.Attempt == Retried {
		c.log().WarnContext(ctx, "replayed request rejected after refresh",
			"path", req.Path, "request_id", req.ID)
		return resp, original
	}

	if refreshErr := c.sharedRefresh(ctx); refreshErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.Network(ctxErr)
		}
		c.log().WarnContext(ctx, "session refresh failed",
			"path", req.Path, "request_id", req.ID, "error", refreshErr)
		return nil, c.expire(ctx, original)
	}

	req.Attempt = Retried
	return c.Do(ctx, req)
}

// sharedRefresh coalesces concurrent refreshes into one round trip. The round trip
// is detached from any single caller's cancellation; a caller whose context ends
// stops waiting without affecting the others.
func (c *Client) sharedRefresh(ctx context.Context) error {
	ch := c.refresh.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return nil, c.Refresh(rctx)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *Client) expire(ctx context.Context, cause error) error {
	metrics.EmitSessionEvent(c.metrics, metrics.SessionEventExpired, cause)

	c.mu.RLock()
	fn := c.onExpired
	c.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
	return apperrors.SessionExpired(cause)
}

// Login posts credentials. A 400, 401 or 403 is reported as InvalidCredentials carrying
// the backend detail message when one is present.
func (c *Client) Login(ctx context.Context, email, password string) (domainauth.LoginResponse, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return domainauth.LoginResponse{}, fmt.Errorf("encode login body: %w", err)
	}

	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: LoginPath, Body: body, NoRefresh: true})
	if err != nil {
		if resp != nil && isAuthFailure(resp.Status) {
			metrics.EmitSessionEvent(c.metrics, metrics.SessionEventLogin, err)
			return domainauth.LoginResponse{}, apperrors.InvalidCredentials(detailOf(resp.Body))
		}
		metrics.EmitSessionEvent(c.metrics, metrics.SessionEventLogin, err)
		return domainauth.LoginResponse{}, err
	}

	var out domainauth.LoginResponse
	if err := resp.Decode(&out); err != nil {
		return domainauth.LoginResponse{}, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "invalid login response")
	}
	metrics.EmitSessionEvent(c.metrics, metrics.SessionEventLogin, nil)
	return out, nil
}

// Logout asks the backend to clear the session cookie. Errors are logged, never returned.
func (c *Client) Logout(ctx context.Context) {
	if _, err := c.Do(ctx, Request{Method: http.MethodPost, Path: LogoutPath, NoRefresh: true}); err != nil {
		c.log().WarnContext(ctx, "remote logout failed", "error", err)
		metrics.EmitSessionEvent(c.metrics, metrics.SessionEventLogout, err)
		return
	}
	metrics.EmitSessionEvent(c.metrics, metrics.SessionEventLogout, nil)
}

// Refresh asks the backend to rotate the session credential.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: RefreshPath, NoRefresh: true})
	metrics.EmitSessionEvent(c.metrics, metrics.SessionEventRefresh, err)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	return nil
}

// CurrentUser fetches the signed-in user's profile.
func (c *Client) CurrentUser(ctx context.Context) (domainauth.Profile, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: MePath})
	if err != nil {
		return domainauth.Profile{}, err
	}
	var p domainauth.Profile
	if err := resp.Decode(&p); err != nil {
		return domainauth.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "invalid profile response")
	}
	return p, nil
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	target := c.base.JoinPath(req.Path)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(RequestIDHeader, req.ID)

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.EmitBackendRequest(c.metrics, metrics.BackendRequest{
			Method: req.Method, Path: req.Path, Attempt: req.Attempt.String(),
			Duration: time.Since(start), Err: err,
		})
		return nil, apperrors.Network(err)
	}
	defer func() {
		if cerr := httpResp.Body.Close(); cerr != nil {
			c.log().DebugContext(ctx, "close response body", "error", cerr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.Network(fmt.Errorf("read response: %w", err))
	}

	metrics.EmitBackendRequest(c.metrics, metrics.BackendRequest{
		Method: req.Method, Path: req.Path, Attempt: req.Attempt.String(),
		Status: httpResp.StatusCode, Duration: time.Since(start),
	})
	c.log().DebugContext(ctx, "backend request",
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"attempt", req.Attempt.String(),
		"request_id", req.ID,
	)

	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func statusError(resp *Response) error {
	if resp.Status >= 200 && resp.Status < 300 {
		return nil
	}
	return apperrors.Upstream(resp.Status, detailOf(resp.Body))
}

func isAuthFailure(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden
}

// detailOf extracts the backend's structured error message, if any.
func detailOf(body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Message
}
