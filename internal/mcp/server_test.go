package mcp

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/testutil"
	"github.com/filevault/vaultctl/internal/vault"
)

type fakeSession struct {
	id     vault.Identity
	filter query.Filter
}

func (f fakeSession) Identity() vault.Identity  { return f.id }
func (f fakeSession) SavedFilter() query.Filter { return f.filter }

func newTestServer(t *testing.T, fv *testutil.FakeVault, sess fakeSession) *Server {
	t.Helper()
	return NewServer(ServerConfig{
		Client:        fv.Client(),
		Session:       sess,
		ShareOrigin:   "https://files.example.com",
		Location:      time.UTC,
		UploadTimeout: time.Second,
	}, "test")
}

func fileJSON(id, name string, size int64, owner string) map[string]any {
	f := map[string]any{
		"file_id":       id,
		"filename":      name,
		"created_at":    "2024-05-01T10:00:00Z",
		"file_contents": map[string]any{"size": size, "mime_type": "text/plain"},
	}
	if owner != "" {
		f["users"] = map[string]any{"username": owner}
	}
	return f
}

func TestSearchUsesExplicitFilter(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, vault.SearchPath, testutil.JSON(http.StatusOK, []any{fileJSON("f1", "a.txt", 2048, "")}))
	s := newTestServer(t, fv, fakeSession{id: vault.Identity{UserID: "u1"}})

	result, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: " a ", MinSize: "1.5MB", MimeType: "All"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, out.Files, 1)
	assert.Equal(t, "f1", out.Files[0].ID)
	assert.Equal(t, int64(2048), out.TotalSize)
	assert.Equal(t, "2024-05-01T10:00:00Z", out.Files[0].CreatedAt)

	reqs := fv.RequestsTo(vault.SearchPath)
	require.Len(t, reqs, 1)
	assert.Equal(t, "u1", reqs[0].Query.Get("owner_id"))
	assert.Equal(t, "a", reqs[0].Query.Get("filename"))
	assert.Equal(t, "1572864", reqs[0].Query.Get("min_size"))
	assert.False(t, reqs[0].Query.Has("mime_type"))
}

func TestSearchFallsBackToSavedFilter(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, vault.SearchPath, testutil.JSON(http.StatusOK, []any{}))
	limit := int64(4096)
	s := newTestServer(t, fv, fakeSession{
		id:     vault.Identity{UserID: "u1"},
		filter: query.Filter{MaxSizeBytes: &limit, MimeType: "image/png"},
	})

	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{})
	require.NoError(t, err)
	assert.NotNil(t, out.Files)
	assert.Zero(t, out.Total)

	reqs := fv.RequestsTo(vault.SearchPath)
	require.Len(t, reqs, 1)
	assert.Equal(t, "4096", reqs[0].Query.Get("max_size"))
	assert.Equal(t, "image/png", reqs[0].Query.Get("mime_type"))
}

func TestSearchAdminGroups(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, vault.AdminFilesPath, testutil.JSON(http.StatusOK, []any{
		fileJSON("f1", "a", 1, "alice"),
		fileJSON("f2", "b", 1, ""),
		fileJSON("f3", "c", 1, "alice"),
	}))
	s := newTestServer(t, fv, fakeSession{id: vault.Identity{UserID: "root", Admin: true}})

	_, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "ignored"})
	require.NoError(t, err)
	require.Len(t, out.Groups, 2)
	assert.Equal(t, OwnerItem{Owner: "alice", FileIDs: []string{"f1", "f3"}}, out.Groups[0])
	assert.Equal(t, "Unknown User", out.Groups[1].Owner)
}

func TestConcurrentSearchesAreIndependent(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, vault.SearchPath, func(c echo.Context) error {
		name := c.QueryParam("filename")
		if name == "slow" {
			time.Sleep(150 * time.Millisecond)
		}
		return c.JSON(http.StatusOK, []any{fileJSON(name, name+".txt", 1, "")})
	})
	s := newTestServer(t, fv, fakeSession{id: vault.Identity{UserID: "u1"}})

	type outcome struct {
		result *mcp.CallToolResult
		out    SearchOutput
		err    error
	}
	slow := make(chan outcome, 1)
	go func() {
		r, out, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "slow"})
		slow <- outcome{r, out, err}
	}()
	time.Sleep(30 * time.Millisecond)

	fast, fastOut, err := s.handleSearch(context.Background(), nil, SearchInput{Query: "fast"})
	require.NoError(t, err)
	assert.False(t, fast.IsError)
	require.Len(t, fastOut.Files, 1)
	assert.Equal(t, "fast", fastOut.Files[0].ID)

	got := <-slow
	require.NoError(t, got.err)
	assert.False(t, got.result.IsError)
	require.Len(t, got.out.Files, 1)
	assert.Equal(t, "slow", got.out.Files[0].ID)
}

func TestSearchRejectsBadInput(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	s := newTestServer(t, fv, fakeSession{id: vault.Identity{UserID: "u1"}})

	_, _, err := s.handleSearch(context.Background(), nil, SearchInput{MinSize: "3TB"})
	assert.Error(t, err)

	anon := newTestServer(t, fv, fakeSession{})
	_, _, err = anon.handleSearch(context.Background(), nil, SearchInput{})
	assert.ErrorIs(t, err, vault.ErrNoIdentity)
	assert.Empty(t, fv.Requests())
}

func TestSearchServerErrorIsToolError(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, vault.SearchPath, testutil.JSON(http.StatusInternalServerError, map[string]string{"error": "db down"}))
	s := newTestServer(t, fv, fakeSession{id: vault.Identity{UserID: "u1"}})

	result, _, err := s.handleSearch(context.Background(), nil, SearchInput{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestUploadReportsEachFile(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodPost, "/api/v1/upload", func(c echo.Context) error {
		if testutil.UploadedName(c) == "bad.txt" {
			return c.JSON(http.StatusConflict, map[string]string{"error": "quota exceeded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"file_id": "new"})
	})
	s := newTestServer(t, fv, fakeSession{id: vault.Identity{UserID: "u1"}})

	result, out, err := s.handleUpload(context.Background(), nil, UploadInput{
		FileName:    "one.txt",
		FileContent: "hello",
		Files: []UploadFile{
			{FileName: "bad.txt", FileContent: "x"},
			{FileName: "img.bin", FileContent: base64.StdEncoding.EncodeToString([]byte{0, 1, 2}), IsBase64: true},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, out.Results, 3)
	assert.Equal(t, "one.txt", out.Results[0].FileName)
	assert.True(t, out.Results[0].Success)
	assert.False(t, out.Results[1].Success)
	assert.Equal(t, "quota exceeded", out.Results[1].Message)
	assert.True(t, out.Results[2].Success)
	assert.Equal(t, 2, out.SuccessCount)
	assert.Equal(t, 1, out.ErrorCount)
	assert.Equal(t, "partial", out.Summary)

	reqs := fv.RequestsTo("/api/v1/upload")
	require.Len(t, reqs, 3)
	assert.Equal(t, "u1", reqs[0].Query.Get("owner_id"))
}

func TestUploadValidation(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	s := newTestServer(t, fv, fakeSession{id: vault.Identity{UserID: "u1"}})
	ctx := context.Background()

	_, _, err := s.handleUpload(ctx, nil, UploadInput{})
	assert.Error(t, err)

	_, _, err = s.handleUpload(ctx, nil, UploadInput{FileName: "x", FileContent: "!!", IsBase64: true})
	assert.Error(t, err)

	anon := newTestServer(t, fv, fakeSession{})
	_, _, err = anon.handleUpload(ctx, nil, UploadInput{FileName: "x", FileContent: "y"})
	assert.ErrorIs(t, err, vault.ErrNoIdentity)
	assert.Empty(t, fv.Requests())
}

func TestDeleteAndShare(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodDelete, "/api/v1/files/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "File not found"})
		}
		return c.NoContent(http.StatusNoContent)
	})
	fv.Handle(http.MethodPost, "/api/v1/user/files/:id/share", testutil.JSON(http.StatusOK, map[string]any{"share_token": "tok", "is_public": true}))
	s := newTestServer(t, fv, fakeSession{id: vault.Identity{UserID: "u1"}})
	ctx := context.Background()

	_, del, err := s.handleDelete(ctx, nil, DeleteInput{FileID: "f1"})
	require.NoError(t, err)
	assert.True(t, del.Success)

	result, del, err := s.handleDelete(ctx, nil, DeleteInput{FileID: "missing"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "File not found", del.Error)

	_, _, err = s.handleDelete(ctx, nil, DeleteInput{})
	assert.Error(t, err)

	_, sh, err := s.handleShare(ctx, nil, ShareInput{FileID: "f1"})
	require.NoError(t, err)
	assert.True(t, sh.IsPublic)
	assert.Equal(t, "https://files.example.com/share/tok", sh.URL)
}

func TestStats(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, "/api/v1/users/:id/stats", testutil.JSON(http.StatusOK, map[string]any{"total_files": 3, "total_storage_used": 3072}))
	fv.Handle(http.MethodGet, "/api/v1/stats", testutil.JSON(http.StatusOK, map[string]any{
		"total_storage_used_deduplicated": 2048,
		"storage_savings_percentage":      "33.33%",
		"storage_quota":                   10485760,
	}))
	s := newTestServer(t, fv, fakeSession{id: vault.Identity{UserID: "u1"}})

	result, out, err := s.handleStats(context.Background(), nil, StatsInput{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, int64(3), out.TotalFiles)
	assert.Nil(t, out.TotalUsers)
	assert.Equal(t, "33.33%", out.SavingsPercentage)
	assert.Equal(t, int64(10485760), out.StorageQuota)
}

func TestAPIKeyMiddleware(t *testing.T) {
	handler := NewMux("secret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		target string
		want   int
	}{
		{"no key", func(r *http.Request) {}, "/mcp", http.StatusUnauthorized},
		{"wrong key", func(r *http.Request) { r.Header.Set("X-API-Key", "nope") }, "/mcp", http.StatusUnauthorized},
		{"header", func(r *http.Request) { r.Header.Set("X-API-Key", "secret") }, "/mcp", http.StatusOK},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") }, "/mcp", http.StatusOK},
		{"query", func(r *http.Request) {}, "/mcp?api_key=secret", http.StatusOK},
		{"metrics are open", func(r *http.Request) {}, "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAPIKeyMiddlewareRejectsEmptyKey(t *testing.T) {
	h := APIKeyMiddleware("", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
