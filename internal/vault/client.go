package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/filevault/vaultctl/internal/metrics"
)

// API paths. They must match the server exactly.
const (
	SearchPath        = "/api/v1/search"
	AdminFilesPath    = "/api/v1/admin/files"
	filesPath         = "/api/v1/files"
	uploadPath        = "/api/v1/upload"
	userFilesPath     = "/api/v1/user/files"
	sharedPubliclyURL = "/api/v1/user/shared-publicly"
	sharePath         = "/share"
	storageStatsPath  = "/api/v1/stats"
	usersPath         = "/api/v1/users"
	adminStatsPath    = "/api/v1/admin/stats"
	quotaPath         = "/api/v1/user/quota"
	loginPath         = "/api/v1/login"
	registerPath      = "/api/v1/register"
	verifyOTPPath     = "/api/v1/verify-otp"
	resendOTPPath     = "/api/v1/resend-otp"
	passwordPath      = "/api/v1/user/password"

	// UserIDHeader carries the caller's identity on share and account routes.
	UserIDHeader = "X-User-ID"
)

const defaultTimeout = 30 * time.Second

// Client is a client for the file storage HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each JSON API call. Uploads and download bodies are
// bounded only by the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new storage API client for baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "vault_client"))
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// request describes one API call.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	header      http.Header
	body        io.Reader
	contentType string

	// unbounded skips the client timeout.
	unbounded bool
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, string, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	body := r.body
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	return req, requestID, nil
}

// send issues r and returns the raw response; the caller owns the body.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	req, requestID, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveRequest(r.op, 0, elapsed)
		c.logger.Debug("request failed",
			slog.String("op", r.op),
			slog.String("method", r.method),
			slog.String("path", r.path),
			slog.String("request_id", requestID),
			slog.Any("error", err),
		)
		return nil, &NetworkError{Op: r.op, Err: err}
	}

	metrics.ObserveRequest(r.op, resp.StatusCode, elapsed)
	c.logger.Debug("request",
		slog.String("op", r.op),
		slog.String("method", r.method),
		slog.String("path", r.path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("latency_ms", elapsed.Milliseconds()),
		slog.String("request_id", requestID),
	)
	return resp, nil
}

// do issues r and reads the whole body within the client timeout.
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	if !r.unbounded && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: r.op, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return &response{status: resp.StatusCode, body: body}, nil
}

// errorBody is the server's error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// serverError builds the ServerError for a non-2xx response.
func serverError(op string, r *response) *ServerError {
	se := &ServerError{
		Op:         op,
		StatusCode: r.status,
		Body:       strings.TrimSpace(string(r.body)),
	}
	if !json.Valid(r.body) {
		return se
	}
	se.JSON = true
	var eb errorBody
	if err := json.Unmarshal(r.body, &eb); err == nil {
		se.Message = eb.Error
	}
	return se
}

// decode checks the status and unmarshals a 2xx body into v.
func decode(op string, r *response, v any) error {
	if !r.ok() {
		return serverError(op, r)
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return &MalformedResponseError{Op: op, StatusCode: r.status, Body: string(r.body), Err: err}
	}
	return nil
}

// stream opens a binary download. Only ctx bounds it, so a slow body is
// never cut off by the client timeout. The caller must close the returned body.
func (c *Client) stream(ctx context.Context, r request) (io.ReadCloser, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, serverError(r.op, &response{status: resp.StatusCode, body: body})
	}
	return resp.Body, nil
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return bytes.NewReader(data), nil
}

func userHeader(userID string) http.Header {
	h := http.Header{}
	h.Set(UserIDHeader, userID)
	return h
}
