package vault

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
)

// ToggleShare flips the public visibility of a file and returns the
// resulting state. Calling it twice alternates the state.
func (c *Client) ToggleShare(ctx context.Context, fileID, userID string) (ShareState, error) {
	resp, err := c.do(ctx, request{
		op:          "share file",
		method:      http.MethodPost,
		path:        path.Join(userFilesPath, url.PathEscape(fileID), "share"),
		header:      userHeader(userID),
		contentType: "application/json",
	})
	if err != nil {
		return ShareState{}, err
	}

	var state ShareState
	if err := decode("share file", resp, &state); err != nil {
		return ShareState{}, err
	}
	return state, nil
}

// ListPublicShares lists the caller's publicly shared files
func (c *Client) ListPublicShares(ctx context.Context, userID string) ([]PublicShare, error) {
	resp, err := c.do(ctx, request{
		op:     "list public shares",
		method: http.MethodGet,
		path:   sharedPubliclyURL,
		header: userHeader(userID),
	})
	if err != nil {
		return nil, err
	}

	var shares []PublicShare
	if err := decode("list public shares", resp, &shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// GetPublicShare fetches the metadata behind a share token. No identity
// is required.
func (c *Client) GetPublicShare(ctx context.Context, token string) (PublicShareDetails, error) {
	resp, err := c.do(ctx, request{
		op:     "get public share",
		method: http.MethodGet,
		path:   path.Join(sharePath, url.PathEscape(token)),
	})
	if err != nil {
		return PublicShareDetails{}, err
	}

	var details PublicShareDetails
	if err := decode("get public share", resp, &details); err != nil {
		return PublicShareDetails{}, err
	}
	return details, nil
}

// DownloadPublicShare opens the content behind a share token. The caller
// must close the returned reader.
func (c *Client) DownloadPublicShare(ctx context.Context, token string) (io.ReadCloser, error) {
	return c.stream(ctx, request{
		op:     "download public share",
		method: http.MethodGet,
		path:   path.Join(sharePath, url.PathEscape(token), "download"),
	})
}
