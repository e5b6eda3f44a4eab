package vault

import (
	"context"
	"net/http"
	"net/url"
	"path"
)

// StorageStats fetches deduplicated usage, savings and quota for a user.
func (c *Client) StorageStats(ctx context.Context, userID string) (StorageStats, error) {
	params := url.Values{}
	params.Set("user_id", userID)

	var stats StorageStats
	err := c.getJSON(ctx, "storage stats", storageStatsPath, params, nil, &stats)
	return stats, err
}

// UserStats fetches the dashboard totals of one user.
func (c *Client) UserStats(ctx context.Context, userID string) (DashboardStats, error) {
	var stats DashboardStats
	err := c.getJSON(ctx, "user stats", path.Join(usersPath, url.PathEscape(userID), "stats"), nil, nil, &stats)
	return stats, err
}

// AdminStats fetches the service-wide dashboard totals.
func (c *Client) AdminStats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	err := c.getJSON(ctx, "admin stats", adminStatsPath, nil, nil, &stats)
	return stats, err
}

// Quota fetches the user's rate limit and storage quota.
func (c *Client) Quota(ctx context.Context, userID string) (Quota, error) {
	params := url.Values{}
	params.Set("user_id", userID)

	var q Quota
	err := c.getJSON(ctx, "quota", quotaPath, params, userHeader(userID), &q)
	return q, err
}

func (c *Client) getJSON(ctx context.Context, op, p string, params url.Values, header http.Header, v any) error {
	resp, err := c.do(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   p,
		query:  params,
		header: header,
	})
	if err != nil {
		return err
	}
	return decode(op, resp, v)
}
