// Package share toggles public links for files and browses public shares.
package share

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/filevault/vaultctl/internal/vault"
)

// API is the part of the storage client the manager needs.
type API interface {
	ToggleShare(ctx context.Context, fileID, userID string) (vault.ShareState, error)
	ListPublicShares(ctx context.Context, userID string) ([]vault.PublicShare, error)
	GetPublicShare(ctx context.Context, token string) (vault.PublicShareDetails, error)
	DownloadPublicShare(ctx context.Context, token string) (io.ReadCloser, error)
}

// Link is the result of a toggle: the server's state plus the URL a user
// would copy.
type Link struct {
	Token    string
	IsPublic bool
	URL      string
}

// Message is the confirmation shown after a toggle.
func (l Link) Message() string {
	verb := "disabled"
	if l.IsPublic {
		verb = "enabled"
	}
	return fmt.Sprintf("File sharing %s! Link copied to clipboard: %s", verb, l.URL)
}

// Manager toggles sharing and builds share URLs under origin.
type Manager struct {
	api    API
	origin string
	logger *slog.Logger
}

// NewManager creates a Manager. origin is the scheme and host share links
// are built on, for example "https://files.example.com".
func NewManager(api API, origin string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		api:    api,
		origin: strings.TrimRight(origin, "/"),
		logger: logger.With(slog.String("component", "share")),
	}
}

// URL returns origin/share/{token}. The token is only path-escaped.
func (m *Manager) URL(token string) string {
	return m.origin + "/share/" + url.PathEscape(token)
}

// Toggle flips the public state of fileID and reports what the server
// returned. Calling it twice alternates the state; nothing is remembered
// locally.
func (m *Manager) Toggle(ctx context.Context, id vault.Identity, fileID string) (Link, error) {
	if err := vault.RequireIdentity("share file", id); err != nil {
		return Link{}, err
	}
	state, err := m.api.ToggleShare(ctx, fileID, id.UserID)
	if err != nil {
		return Link{}, err
	}
	m.logger.Debug("share toggled",
		slog.String("file_id", fileID),
		slog.Bool("public", state.IsPublic),
	)
	return Link{Token: state.Token, IsPublic: state.IsPublic, URL: m.URL(state.Token)}, nil
}

// ListPublic returns the caller's publicly shared files.
func (m *Manager) ListPublic(ctx context.Context, id vault.Identity) ([]vault.PublicShare, error) {
	if err := vault.RequireIdentity("list public shares", id); err != nil {
		return nil, err
	}
	return m.api.ListPublicShares(ctx, id.UserID)
}

// Open fetches the metadata behind a share token.
func (m *Manager) Open(ctx context.Context, token string) (vault.PublicShareDetails, error) {
	return m.api.GetPublicShare(ctx, token)
}

// Download streams a shared file into sink under filename.
func (m *Manager) Download(ctx context.Context, token, filename string, sink vault.DownloadSink) error {
	body, err := m.api.DownloadPublicShare(ctx, token)
	if err != nil {
		return err
	}
	defer body.Close()

	if filename == "" {
		filename = token
	}
	if err := sink.TriggerDownload(filename, body); err != nil {
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return nil
}
