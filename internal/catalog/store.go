// Package catalog holds the file listing a user is looking at: the last
// result set, its per-owner grouping for administrators, and the view
// state that decides when it is fetched again.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/vault"
)

// UnknownOwner labels admin groups for files without owner attribution.
const UnknownOwner = "Unknown User"

// RecentLimit is the number of files the dashboard lists as recent.
const RecentLimit = 5

// ErrSuperseded is returned by Refresh when a newer refresh has already
// been applied. The stale result is dropped.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// API is the part of the storage client the catalog needs.
type API interface {
	ListFiles(ctx context.Context, endpoint string, params url.Values) ([]vault.FileRecord, error)
	RecentFiles(ctx context.Context, ownerID string, limit int) ([]vault.FileRecord, error)
	DeleteFile(ctx context.Context, fileID, userID string) error
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Group is one owner's files in an admin listing, in server order.
type Group struct {
	Owner string
	Files []vault.FileRecord
}

// ResultSet is one complete listing. Groups is only filled for
// administrators; Files always holds the full sequence.
type ResultSet struct {
	Files  []vault.FileRecord
	Groups []Group
	Admin  bool
}

// Count returns the number of files.
func (r ResultSet) Count() int {
	return len(r.Files)
}

// TotalSize returns the sum of the file sizes.
func (r ResultSet) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// Group returns the files of one owner label.
func (r ResultSet) Group(owner string) ([]vault.FileRecord, bool) {
	for _, g := range r.Groups {
		if g.Owner == owner {
			return g.Files, true
		}
	}
	return nil, false
}

// Find returns the file with the given id.
func (r ResultSet) Find(fileID string) (vault.FileRecord, bool) {
	for _, f := range r.Files {
		if f.ID == fileID {
			return f, true
		}
	}
	return vault.FileRecord{}, false
}

// GroupByOwner groups files by owner username in order of first
// appearance. Files without a username go under UnknownOwner.
func GroupByOwner(files []vault.FileRecord) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, f := range files {
		owner := f.OwnerUsername
		if owner == "" {
			owner = UnknownOwner
		}
		i, ok := index[owner]
		if !ok {
			i = len(groups)
			index[owner] = i
			groups = append(groups, Group{Owner: owner})
		}
		groups[i].Files = append(groups[i].Files, f)
	}
	return groups
}

// Store holds the current result set. Refreshes are numbered when they
// start; a result is applied only if no later-numbered one was applied
// first, so a slow old request never overwrites a newer listing.
type Store struct {
	api    API
	loc    *time.Location
	logger *slog.Logger

	mu      sync.Mutex
	seq     uint64
	applied uint64
	current ResultSet
}

// NewStore creates a Store. Dates in filters are read in loc (nil means
// time.Local).
func NewStore(api API, loc *time.Location, logger *slog.Logger) *Store {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:    api,
		loc:    loc,
		logger: logger.With(slog.String("component", "catalog")),
	}
}

// Snapshot returns the result set currently on display.
func (s *Store) Snapshot() ResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Refresh fetches the listing for id and replaces the result set. On any
// fetch error the result set becomes empty and the error is returned as
// is (*vault.NetworkError, *vault.ServerError or
// *vault.MalformedResponseError). Without an identity the set is emptied
// too and refreshes in flight are superseded. A result that lost to a
// newer refresh returns ErrSuperseded and changes nothing.
func (s *Store) Refresh(ctx context.Context, id vault.Identity, freeText string, f query.Filter) (ResultSet, error) {
	if err := vault.RequireIdentity("list files", id); err != nil {
		s.mu.Lock()
		s.seq++
		s.applied = s.seq
		s.current = ResultSet{}
		s.mu.Unlock()
		return ResultSet{}, err
	}

	seq := s.next()
	req := query.Build(id, freeText, f, s.loc)
	files, err := s.api.ListFiles(ctx, req.Endpoint, req.Params)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.applied {
		s.logger.Debug("dropping stale listing",
			slog.Uint64("seq", seq),
			slog.Uint64("applied", s.applied),
		)
		return s.current, ErrSuperseded
	}
	s.applied = seq

	if err != nil {
		s.current = ResultSet{Admin: id.Admin}
		s.logger.Warn("listing failed", slog.String("request", req.String()), slog.Any("error", err))
		return s.current, err
	}

	rs := ResultSet{Files: files, Admin: id.Admin}
	if rs.Files == nil {
		rs.Files = []vault.FileRecord{}
	}
	if id.Admin {
		rs.Groups = GroupByOwner(files)
	}
	s.current = rs
	return rs, nil
}

// Remove deletes a file on the server on behalf of id, then drops it from
// the displayed set. Any refresh still in flight is superseded, so the
// deleted file cannot reappear from an older listing. Callers are
// expected to Refresh afterwards.
func (s *Store) Remove(ctx context.Context, id vault.Identity, fileID string) error {
	if err := vault.RequireIdentity("delete file", id); err != nil {
		return err
	}
	if err := s.api.DeleteFile(ctx, fileID, id.UserID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.applied = s.seq

	files := make([]vault.FileRecord, 0, len(s.current.Files))
	for _, f := range s.current.Files {
		if f.ID != fileID {
			files = append(files, f)
		}
	}
	rs := ResultSet{Files: files, Admin: s.current.Admin}
	if rs.Admin {
		rs.Groups = GroupByOwner(files)
	}
	s.current = rs
	return nil
}

// Recent returns the newest RecentLimit files of id. It does not touch
// the displayed result set.
func (s *Store) Recent(ctx context.Context, id vault.Identity) ([]vault.FileRecord, error) {
	if err := vault.RequireIdentity("recent files", id); err != nil {
		return nil, err
	}
	return s.api.RecentFiles(ctx, id.UserID, RecentLimit)
}

// Download streams a file's content into sink under its filename.
func (s *Store) Download(ctx context.Context, file vault.FileRecord, sink vault.DownloadSink) error {
	body, err := s.api.DownloadFile(ctx, file.ID)
	if err != nil {
		return err
	}
	defer body.Close()

	name := file.Filename
	if name == "" {
		name = file.ID
	}
	if err := sink.TriggerDownload(name, body); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}
