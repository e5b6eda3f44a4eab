package stats

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

func TestFetchDashboardByRole(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, "/api/v1/admin/stats", testutil.JSON(http.StatusOK, map[string]any{"total_files": 9, "total_storage_used": 900, "total_users": 4}))
	fv.Handle(http.MethodGet, "/api/v1/users/:id/stats", testutil.JSON(http.StatusOK, map[string]any{"total_files": 1, "total_storage_used": 10}))
	p := NewPresenter(fv.Client(), nil)
	ctx := context.Background()

	s, err := p.FetchDashboard(ctx, vault.Identity{UserID: "root", Admin: true})
	require.NoError(t, err)
	require.NotNil(t, s.TotalUsers)
	assert.Equal(t, int64(4), *s.TotalUsers)

	s, err = p.FetchDashboard(ctx, vault.Identity{UserID: "u1"})
	require.NoError(t, err)
	assert.Nil(t, s.TotalUsers)
	assert.Equal(t, int64(1), s.TotalFiles)
	assert.Len(t, fv.RequestsTo("/api/v1/users/u1/stats"), 1)
}

func TestFailedFetchKeepsPreviousValue(t *testing.T) {
	var fail atomic.Bool
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, "/api/v1/stats", func(c echo.Context) error {
		if fail.Load() {
			return c.String(http.StatusServiceUnavailable, "down")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"total_storage_used_deduplicated": 512,
			"storage_savings_percentage":      "25.00%",
			"storage_quota":                   1024,
			"storage_savings_bytes":           128,
		})
	})
	p := NewPresenter(fv.Client(), nil)
	ctx := context.Background()
	id := vault.Identity{UserID: "u1"}

	_, ok := p.Storage()
	assert.False(t, ok)

	_, err := p.FetchStorage(ctx, id)
	require.NoError(t, err)

	fail.Store(true)
	_, err = p.FetchStorage(ctx, id)
	var se *vault.ServerError
	require.ErrorAs(t, err, &se)

	s, ok := p.Storage()
	require.True(t, ok)
	assert.Equal(t, "25.00%", s.SavingsPercentage)
	assert.Equal(t, int64(128), s.SavingsBytes)
	assert.InDelta(t, 0.5, s.UsedFraction(), 1e-9)
}

func TestFetchQuota(t *testing.T) {
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, "/api/v1/user/quota", testutil.JSON(http.StatusOK, map[string]any{"rate_limit": 60, "storage_quota": 1 << 30}))
	p := NewPresenter(fv.Client(), nil)

	_, err := p.FetchQuota(context.Background(), vault.Identity{})
	assert.ErrorIs(t, err, vault.ErrNoIdentity)

	q, err := p.FetchQuota(context.Background(), vault.Identity{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 60, q.RateLimit)

	req := fv.RequestsTo("/api/v1/user/quota")[0]
	assert.Equal(t, "u1", req.Query.Get("user_id"))
	assert.Equal(t, "u1", req.Header.Get(vault.UserIDHeader))

	cached, ok := p.Quota()
	assert.True(t, ok)
	assert.Equal(t, q, cached)
}
