// Package testutil provides an in-process stand-in for the storage
// service used by package tests.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/filevault/vaultctl/internal/vault"
)

// Request is one request received by a FakeVault.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// FakeVault is an HTTP server with routes registered per test. Every
// request is recorded before it is routed; unregistered routes answer 404
// with a JSON error.
type FakeVault struct {
	URL  string
	Echo *echo.Echo

	server   *httptest.Server
	mu       sync.Mutex
	requests []Request
}

// NewFakeVault starts a FakeVault that is closed when t finishes.
func NewFakeVault(t testing.TB) *FakeVault {
	t.Helper()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	fv := &FakeVault{Echo: e}
	e.Pre(fv.record)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		}
		_ = c.JSON(code, map[string]string{"error": msg})
	}

	fv.server = httptest.NewServer(e)
	fv.URL = fv.server.URL
	t.Cleanup(fv.server.Close)
	return fv
}

func (fv *FakeVault) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		fv.mu.Lock()
		fv.requests = append(fv.requests, Request{
			Method: req.Method,
			Path:   req.URL.Path,
			Query:  req.URL.Query(),
			Header: req.Header.Clone(),
			Body:   body,
		})
		fv.mu.Unlock()
		return next(c)
	}
}

// Client returns a storage client pointed at the fake.
func (fv *FakeVault) Client(opts ...vault.Option) *vault.Client {
	return vault.NewClient(fv.URL, opts...)
}

// Handle registers h for method and an echo route path such as
// "/api/v1/files/:id".
func (fv *FakeVault) Handle(method, path string, h echo.HandlerFunc) {
	fv.Echo.Add(method, path, h)
}

// Requests returns every request received so far.
func (fv *FakeVault) Requests() []Request {
	fv.mu.Lock()
	defer fv.mu.Unlock()
	out := make([]Request, len(fv.requests))
	copy(out, fv.requests)
	return out
}

// RequestsTo returns the requests received for a path.
func (fv *FakeVault) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range fv.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// JSON answers with status and v encoded as JSON.
func JSON(status int, v any) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(status, v)
	}
}

// Text answers with status and a plain-text body.
func Text(status int, body string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(status, body)
	}
}

// Blob answers with binary content.
func Blob(content []byte) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Blob(http.StatusOK, echo.MIMEOctetStream, content)
	}
}

// UploadedName returns the filename of the multipart "file" field of an
// upload request, or "" if there is none.
func UploadedName(c echo.Context) string {
	fh, err := c.FormFile("file")
	if err != nil {
		return ""
	}
	return fh.Filename
}

// MemorySink is a vault.DownloadSink that keeps downloads in memory.
type MemorySink struct {
	mu    sync.Mutex
	Files map[string][]byte
}

// TriggerDownload implements vault.DownloadSink.
func (s *MemorySink) TriggerDownload(filename string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Files == nil {
		s.Files = make(map[string][]byte)
	}
	s.Files[filename] = data
	return nil
}
