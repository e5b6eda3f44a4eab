package catalog

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/testutil"
	"github.com/filevault/vaultctl/internal/vault"
)

func newView(t *testing.T) (*View, *testutil.FakeVault) {
	t.Helper()
	fv := testutil.NewFakeVault(t)
	fv.Handle(http.MethodGet, vault.SearchPath, testutil.JSON(http.StatusOK, []vault.FileRecord{rec("1", "", 1)}))
	fv.Handle(http.MethodDelete, "/api/v1/files/:id", testutil.JSON(http.StatusOK, map[string]string{}))
	return NewView(NewStore(fv.Client(), time.UTC, nil), user, query.Filter{}), fv
}

func TestTypingDoesNotFetch(t *testing.T) {
	v, fv := newView(t)
	ctx := context.Background()

	v.SetQuery("rep")
	v.SetQuery("report")
	assert.Empty(t, fv.Requests())

	_, err := v.Submit(ctx)
	require.NoError(t, err)
	reqs := fv.RequestsTo(vault.SearchPath)
	require.Len(t, reqs, 1)
	assert.Equal(t, "report", reqs[0].Query.Get("filename"))
}

func TestMountFetchesOnce(t *testing.T) {
	v, fv := newView(t)
	ctx := context.Background()

	rs, err := v.Mount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Count())

	_, err = v.Mount(ctx)
	require.NoError(t, err)
	assert.Len(t, fv.RequestsTo(vault.SearchPath), 1)
}

func TestSaveAndResetFilter(t *testing.T) {
	v, fv := newView(t)
	ctx := context.Background()
	size := int64(2048)

	_, err := v.SaveFilter(ctx, query.Filter{MinSizeBytes: &size})
	require.NoError(t, err)
	_, err = v.ResetFilter(ctx)
	require.NoError(t, err)

	reqs := fv.RequestsTo(vault.SearchPath)
	require.Len(t, reqs, 2)
	assert.Equal(t, "2048", reqs[0].Query.Get("min_size"))
	assert.False(t, reqs[1].Query.Has("min_size"))
	assert.True(t, v.Filter().IsZero())
}

func TestDeleteReloads(t *testing.T) {
	v, fv := newView(t)
	ctx := context.Background()
	v.ToggleMenu("1")

	_, err := v.Delete(ctx, "1")
	require.NoError(t, err)

	assert.Len(t, fv.RequestsTo("/api/v1/files/1"), 1)
	assert.Len(t, fv.RequestsTo(vault.SearchPath), 1)
	_, open := v.OpenMenu()
	assert.False(t, open)
}

func TestToggleMenuIsExclusive(t *testing.T) {
	v, _ := newView(t)

	assert.Equal(t, "a", v.ToggleMenu("a"))
	assert.Equal(t, "b", v.ToggleMenu("b"))
	id, open := v.OpenMenu()
	assert.True(t, open)
	assert.Equal(t, "b", id)

	assert.Equal(t, "", v.ToggleMenu("b"))
	_, open = v.OpenMenu()
	assert.False(t, open)

	v.ToggleMenu("c")
	v.CloseMenu()
	_, open = v.OpenMenu()
	assert.False(t, open)
}
