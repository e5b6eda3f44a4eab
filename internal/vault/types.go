package vault

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Identity is the signed-in user as supplied by the session store. The
// client trusts it as given.
type Identity struct {
	UserID string
	Admin  bool
}

// Present reports whether the identity names a user.
func (i Identity) Present() bool {
	return strings.TrimSpace(i.UserID) != ""
}

// Timestamp decodes the server's timestamps, which arrive with a zone,
// without one (treated as UTC) or as a bare date.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("failed to parse time: %s", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// FileRecord is one file as listed by search or the admin listing.
// OwnerID and OwnerUsername are only populated where the server attributes
// ownership.
type FileRecord struct {
	ID            string
	Filename      string
	CreatedAt     time.Time
	Size          int64
	MimeType      string
	OwnerID       string
	OwnerUsername string
}

type fileContents struct {
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type ownerSummary struct {
	Username string `json:"username"`
}

type fileRecordWire struct {
	FileID    string        `json:"file_id"`
	OwnerID   string        `json:"owner_id,omitempty"`
	Filename  string        `json:"filename"`
	CreatedAt Timestamp     `json:"created_at"`
	Contents  fileContents  `json:"file_contents"`
	Users     *ownerSummary `json:"users,omitempty"`
}

// UnmarshalJSON decodes the server's nested file shape.
func (f *FileRecord) UnmarshalJSON(b []byte) error {
	var w fileRecordWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*f = FileRecord{
		ID:        w.FileID,
		Filename:  w.Filename,
		CreatedAt: w.CreatedAt.Time,
		Size:      w.Contents.Size,
		MimeType:  w.Contents.MimeType,
		OwnerID:   w.OwnerID,
	}
	if w.Users != nil {
		f.OwnerUsername = w.Users.Username
	}
	return nil
}

// MarshalJSON encodes the record in the server's nested shape.
func (f FileRecord) MarshalJSON() ([]byte, error) {
	w := fileRecordWire{
		FileID:    f.ID,
		OwnerID:   f.OwnerID,
		Filename:  f.Filename,
		CreatedAt: Timestamp{f.CreatedAt},
		Contents:  fileContents{Size: f.Size, MimeType: f.MimeType},
	}
	if f.OwnerUsername != "" {
		w.Users = &ownerSummary{Username: f.OwnerUsername}
	}
	return json.Marshal(w)
}

// ShareState is the server's answer to a share toggle.
type ShareState struct {
	Token    string `json:"share_token"`
	IsPublic bool   `json:"is_public"`
}

// PublicShare is one entry of the caller's publicly shared files.
type PublicShare struct {
	ShareID       string    `json:"share_id"`
	FileID        string    `json:"file_id"`
	Filename      string    `json:"filename"`
	OwnerUsername string    `json:"owner_username"`
	MimeType      string    `json:"mime_type"`
	Size          int64     `json:"size"`
	DownloadCount int       `json:"download_count"`
	ShareToken    string    `json:"share_token"`
	CreatedAt     Timestamp `json:"created_at"`
}

// PublicShareDetails is the unauthenticated view of a shared file.
type PublicShareDetails struct {
	FileID        string    `json:"file_id"`
	Filename      string    `json:"filename"`
	MimeType      string    `json:"mime_type"`
	Size          int64     `json:"size"`
	DownloadCount int       `json:"download_count"`
	OwnerUsername string    `json:"owner_username"`
	CreatedAt     Timestamp `json:"created_at"`
}

// DashboardStats backs the home dashboard. TotalUsers is only reported
// by the admin endpoint.
type DashboardStats struct {
	TotalFiles       int64  `json:"total_files"`
	TotalStorageUsed int64  `json:"total_storage_used"`
	TotalUsers       *int64 `json:"total_users,omitempty"`
}

// StorageStats backs the storage sidebar. SavingsPercentage is formatted
// by the server (for example "12.50%") and is shown as received.
type StorageStats struct {
	UsedDeduplicated     int64  `json:"total_storage_used_deduplicated"`
	SavingsPercentage    string `json:"storage_savings_percentage"`
	Quota                int64  `json:"storage_quota"`
	OriginalStorageUsage int64  `json:"original_storage_usage,omitempty"`
	SavingsBytes         int64  `json:"storage_savings_bytes,omitempty"`
}

// UsedFraction is deduplicated usage over quota, with a zero quota read as 1.
func (s StorageStats) UsedFraction() float64 {
	quota := s.Quota
	if quota <= 0 {
		quota = 1
	}
	return float64(s.UsedDeduplicated) / float64(quota)
}

// Quota holds the per-user limits.
type Quota struct {
	RateLimit    int   `json:"rate_limit"`
	StorageQuota int64 `json:"storage_quota"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsAdmin   bool   `json:"is_admin"`
}

// Identity returns the identity the login established.
func (r LoginResult) Identity() Identity {
	return Identity{UserID: r.UserID, Admin: r.IsAdmin}
}

// Registration is the sign-up payload.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DownloadSink receives downloaded content, for example by writing it to
// a directory. Implementations must consume r before returning.
type DownloadSink interface {
	TriggerDownload(filename string, r io.Reader) error
}
