package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filevault/vaultctl/internal/vault"
)

func ptr(v int64) *int64 { return &v }

func TestBuildUserSearch(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	f := Filter{
		MinSizeBytes: ptr(0),
		MaxSizeBytes: ptr(1572864),
		MimeType:     "application/pdf",
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-31",
	}

	req := Build(vault.Identity{UserID: "u1"}, " report ", f, loc)

	assert.Equal(t, vault.SearchPath, req.Endpoint)
	assert.Equal(t, url.Values{
		"owner_id":   {"u1"},
		"filename":   {"report"},
		"min_size":   {"0"},
		"max_size":   {"1572864"},
		"mime_type":  {"application/pdf"},
		"start_date": {"2024-01-01T05:00:00.000Z"},
		"end_date":   {"2024-01-31T05:00:00.000Z"},
	}, req.Params)
}

func TestBuildOmitsUnsetFields(t *testing.T) {
	req := Build(vault.Identity{UserID: "u1"}, "", Filter{}, time.UTC)

	assert.Equal(t, url.Values{"owner_id": {"u1"}}, req.Params)
	assert.Equal(t, "/api/v1/search?owner_id=u1", req.String())
}

func TestBuildAdminIgnoresSearchAndFilter(t *testing.T) {
	f := Filter{MinSizeBytes: ptr(10), MimeType: "image/png", StartDate: "2024-01-01"}

	req := Build(vault.Identity{UserID: "root", Admin: true}, "report", f, time.UTC)

	assert.Equal(t, vault.AdminFilesPath, req.Endpoint)
	assert.Equal(t, url.Values{"user_id": {"root"}}, req.Params)
}

func TestBuildIsDeterministic(t *testing.T) {
	f := Filter{MaxSizeBytes: ptr(2048), EndDate: "2023-12-31"}
	id := vault.Identity{UserID: "u2"}

	a := Build(id, "x", f, time.UTC)
	b := Build(id, "x", f, time.UTC)
	require.Equal(t, a, b)
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, "2023-12-31T00:00:00.000Z", a.Params.Get("end_date"))
}
