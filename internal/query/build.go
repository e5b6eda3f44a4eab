// Package query turns a search box and filter form into the canonical
// request the storage service expects.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/filevault/vaultctl/internal/vault"
)

// instantLayout matches the millisecond ISO-8601 form the server parses.
const instantLayout = "2006-01-02T15:04:05.000Z07:00"

// Request is the endpoint and query parameters for a file listing.
type Request struct {
	Endpoint string
	Params   url.Values
}

// String renders the request as a relative URL.
func (r Request) String() string {
	if len(r.Params) == 0 {
		return r.Endpoint
	}
	return r.Endpoint + "?" + r.Params.Encode()
}

// Build computes the listing request for id. Administrators browse the
// whole service and get only their user_id; freeText and f are ignored.
// Everyone else searches their own files, and each set field of f is
// attached by name. Dates are read as the start of that day in loc and
// sent as UTC instants. Unset fields are never sent.
func Build(id vault.Identity, freeText string, f Filter, loc *time.Location) Request {
	params := url.Values{}
	if id.Admin {
		params.Set("user_id", id.UserID)
		return Request{Endpoint: vault.AdminFilesPath, Params: params}
	}

	if loc == nil {
		loc = time.Local
	}

	params.Set("owner_id", id.UserID)
	if q := strings.TrimSpace(freeText); q != "" {
		params.Set("filename", q)
	}
	if f.MinSizeBytes != nil {
		params.Set("min_size", strconv.FormatInt(*f.MinSizeBytes, 10))
	}
	if f.MaxSizeBytes != nil {
		params.Set("max_size", strconv.FormatInt(*f.MaxSizeBytes, 10))
	}
	if f.MimeType != "" {
		params.Set("mime_type", f.MimeType)
	}
	if f.StartDate != "" {
		params.Set("start_date", startOfDayUTC(f.StartDate, loc))
	}
	if f.EndDate != "" {
		params.Set("end_date", startOfDayUTC(f.EndDate, loc))
	}
	return Request{Endpoint: vault.SearchPath, Params: params}
}

// startOfDayUTC converts a local calendar day to an instant. A value that
// is not a plain date is passed through, so Build stays total.
func startOfDayUTC(day string, loc *time.Location) string {
	t, err := time.ParseInLocation(DateLayout, day, loc)
	if err != nil {
		return day
	}
	return t.UTC().Format(instantLayout)
}
