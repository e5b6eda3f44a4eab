package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sort"
)

// ListFiles fetches a file listing from endpoint (SearchPath or
// AdminFilesPath) with the given query parameters.
func (c *Client) ListFiles(ctx context.Context, endpoint string, params url.Values) ([]FileRecord, error) {
	resp, err := c.do(ctx, request{
		op:     "list files",
		method: http.MethodGet,
		path:   endpoint,
		query:  params,
	})
	if err != nil {
		return nil, err
	}

	var files []FileRecord
	if err := decode("list files", resp, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// RecentFiles returns the owner's newest files, at most limit of them.
// The server is asked for created_at ordering, and the result is sorted
// again newest first since the server does not guarantee direction.
func (c *Client) RecentFiles(ctx context.Context, ownerID string, limit int) ([]FileRecord, error) {
	params := url.Values{}
	params.Set("owner_id", ownerID)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("sort_by", "created_at")

	files, err := c.ListFiles(ctx, SearchPath, params)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	if len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// DeleteFile deletes a file owned by userID
func (c *Client) DeleteFile(ctx context.Context, fileID, userID string) error {
	params := url.Values{}
	params.Set("user_id", userID)

	resp, err := c.do(ctx, request{
		op:     "delete file",
		method: http.MethodDelete,
		path:   path.Join(filesPath, url.PathEscape(fileID)),
		query:  params,
	})
	if err != nil {
		return err
	}
	if !resp.ok() {
		return serverError("delete file", resp)
	}
	return nil
}

// DownloadFile opens the binary content of a file. The caller must close
// the returned reader.
func (c *Client) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	return c.stream(ctx, request{
		op:     "download file",
		method: http.MethodGet,
		path:   path.Join(filesPath, url.PathEscape(fileID)),
	})
}

// UploadFile uploads one file as the multipart field "file" on behalf of
// ownerID. A 2xx response must carry a JSON body; its raw form is
// returned. Errors are *NetworkError, *ServerError or
// *MalformedResponseError, or a plain error if content cannot be read.
func (c *Client) UploadFile(ctx context.Context, ownerID, name string, content io.Reader) (json.RawMessage, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileField, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create file field: %w", err)
	}
	if _, err := io.Copy(fileField, content); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	params := url.Values{}
	params.Set("owner_id", ownerID)

	resp, err := c.do(ctx, request{
		op:          "upload",
		method:      http.MethodPost,
		path:        uploadPath,
		query:       params,
		body:        &buf,
		contentType: writer.FormDataContentType(),
		unbounded:   true,
	})
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := decode("upload", resp, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
