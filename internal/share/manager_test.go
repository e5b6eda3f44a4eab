package share

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filevault/vaultctl/internal/testutil"
	"github.com/filevault/vaultctl/internal/vault"
)

func TestToggleReportsServerState(t *testing.T) {
	var calls atomic.Int32
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodPost, "/api/v1/user/files/:id/share", func(c echo.Context) error {
		n := calls.Add(1)
		return c.JSON(http.StatusOK, map[string]any{"share_token": "tok/1 x", "is_public": n%2 == 1})
	})
	m := NewManager(fv.Client(), "https://files.example.com/", nil)
	id := vault.Identity{UserID: "u1"}

	first, err := m.Toggle(context.Background(), id, "f1")
	require.NoError(t, err)
	second, err := m.Toggle(context.Background(), id, "f1")
	require.NoError(t, err)

	assert.True(t, first.IsPublic)
	assert.False(t, second.IsPublic)
	assert.Equal(t, "tok/1 x", first.Token)
	assert.Equal(t, "https://files.example.com/share/tok%2F1%20x", first.URL)
	assert.Equal(t, "File sharing enabled! Link copied to clipboard: "+first.URL, first.Message())
	assert.Contains(t, second.Message(), "disabled")

	for _, r := range fv.RequestsTo("/api/v1/user/files/f1/share") {
		assert.Equal(t, "u1", r.Header.Get(vault.UserIDHeader))
	}
}

func TestToggleRequiresIdentity(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	m := NewManager(fv.Client(), "http://localhost", nil)

	_, err := m.Toggle(context.Background(), vault.Identity{}, "f1")
	assert.ErrorIs(t, err, vault.ErrNoIdentity)
	assert.Empty(t, fv.Requests())
}

func TestToggleServerError(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodPost, "/api/v1/user/files/:id/share", testutil.JSON(http.StatusNotFound, map[string]string{"error": "File not found"}))
	m := NewManager(fv.Client(), "http://localhost", nil)

	_, err := m.Toggle(context.Background(), vault.Identity{UserID: "u1"}, "f1")
	assert.Equal(t, "File not found", vault.Message(err))
}

func TestPublicBrowsing(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, "/api/v1/user/shared-publicly", testutil.JSON(http.StatusOK, []map[string]any{{"share_token": "abc", "filename": "a.txt"}}))
	fv.Handle(http.MethodGet, "/share/:token", testutil.JSON(http.StatusOK, map[string]any{"filename": "a.txt", "size": 5}))
	fv.Handle(http.MethodGet, "/share/:token/download", testutil.Blob([]byte("hello")))
	m := NewManager(fv.Client(), "http://localhost", nil)
	ctx := context.Background()

	_, err := m.ListPublic(ctx, vault.Identity{})
	assert.ErrorIs(t, err, vault.ErrNoIdentity)

	shares, err := m.ListPublic(ctx, vault.Identity{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, "http://localhost/share/abc", m.URL(shares[0].ShareToken))

	details, err := m.Open(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", details.Filename)

	sink := &testutil.MemorySink{}
	require.NoError(t, m.Download(ctx, "abc", details.Filename, sink))
	assert.Equal(t, "hello", string(sink.Files["a.txt"]))
}
