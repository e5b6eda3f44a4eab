// Package session persists the signed-in user and their saved filter in
// a JSON file between invocations.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/vault"
)

const defaultDataFile = ".vaultctl.json"

// User is the profile returned at login.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsAdmin    bool      `json:"is_admin"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Data is the content of the session file.
type Data struct {
	User         *User        `json:"user,omitempty"`
	Filter       query.Filter `json:"filter"`
	PendingEmail string       `json:"pending_email,omitempty"`
}

// Manager handles the session file
type Manager struct {
	dataPath string
	data     *Data
	mu       sync.RWMutex
}

// NewManager loads the session at dataPath, or ~/.vaultctl.json when
// dataPath is empty. A missing file is an empty session.
func NewManager(dataPath string) (*Manager, error) {
	if dataPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dataPath = filepath.Join(home, defaultDataFile)
	}

	m := &Manager{
		dataPath: dataPath,
		data:     &Data{},
	}

	if err := m.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return m, nil
}

// load loads session data from file
func (m *Manager) load() error {
	data, err := os.ReadFile(m.dataPath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, m.data)
}

// Save writes the session to disk. The file holds the user id, so it is
// readable by the owner only.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.dataPath), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(m.dataPath, data, 0o600)
}

// Path returns the session file location.
func (m *Manager) Path() string {
	return m.dataPath
}

// SetLogin records a successful login.
func (m *Manager) SetLogin(res vault.LoginResult, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data.User = &User{
		UserID:     res.UserID,
		Username:   res.Username,
		Email:      res.Email,
		FirstName:  res.FirstName,
		LastName:   res.LastName,
		IsAdmin:    res.IsAdmin,
		LoggedInAt: at,
	}
	m.data.PendingEmail = ""
}

// Clear forgets the user and their saved filter.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.User = nil
	m.data.Filter = query.Filter{}
}

// Identity returns the signed-in identity, which is empty when nobody is.
func (m *Manager) Identity() vault.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data.User == nil {
		return vault.Identity{}
	}
	return vault.Identity{UserID: m.data.User.UserID, Admin: m.data.User.IsAdmin}
}

// User returns the signed-in profile.
func (m *Manager) User() (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data.User == nil {
		return User{}, false
	}
	return *m.data.User, true
}

// SavedFilter returns the filter applied to listings.
func (m *Manager) SavedFilter() query.Filter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Filter
}

// SetFilter replaces the saved filter.
func (m *Manager) SetFilter(f query.Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Filter = f
}

// PendingEmail returns the address awaiting email verification.
func (m *Manager) PendingEmail() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.PendingEmail
}

// SetPendingEmail remembers the address a verification code was sent to.
func (m *Manager) SetPendingEmail(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.PendingEmail = email
}
