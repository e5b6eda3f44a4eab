// Package stats fetches the usage figures shown on the dashboard and in
// the storage sidebar. Values are displayed as the server reports them.
package stats

import (
	"context"
	"log/slog"
	"sync"

	"github.com/filevault/vaultctl/internal/vault"
)

// API is the part of the storage client the presenter needs.
type API interface {
	AdminStats(ctx context.Context) (vault.DashboardStats, error)
	UserStats(ctx context.Context, userID string) (vault.DashboardStats, error)
	StorageStats(ctx context.Context, userID string) (vault.StorageStats, error)
	Quota(ctx context.Context, userID string) (vault.Quota, error)
}

// Presenter keeps the last successfully fetched value of each figure. A
// failed fetch returns its error and leaves the previous value in place.
type Presenter struct {
	api    API
	logger *slog.Logger

	mu        sync.RWMutex
	dashboard *vault.DashboardStats
	storage   *vault.StorageStats
	quota     *vault.Quota
}

// NewPresenter creates a Presenter with nothing fetched yet.
func NewPresenter(api API, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{
		api:    api,
		logger: logger.With(slog.String("component", "stats")),
	}
}

// FetchDashboard fetches the service-wide totals for administrators and
// the caller's own totals otherwise.
func (p *Presenter) FetchDashboard(ctx context.Context, id vault.Identity) (vault.DashboardStats, error) {
	if err := vault.RequireIdentity("dashboard stats", id); err != nil {
		return vault.DashboardStats{}, err
	}

	var (
		s   vault.DashboardStats
		err error
	)
	if id.Admin {
		s, err = p.api.AdminStats(ctx)
	} else {
		s, err = p.api.UserStats(ctx, id.UserID)
	}
	if err != nil {
		p.logger.Warn("dashboard stats unavailable", slog.Any("error", err))
		return vault.DashboardStats{}, err
	}

	p.mu.Lock()
	p.dashboard = &s
	p.mu.Unlock()
	return s, nil
}

// FetchStorage fetches deduplicated usage and savings.
func (p *Presenter) FetchStorage(ctx context.Context, id vault.Identity) (vault.StorageStats, error) {
	if err := vault.RequireIdentity("storage stats", id); err != nil {
		return vault.StorageStats{}, err
	}
	s, err := p.api.StorageStats(ctx, id.UserID)
	if err != nil {
		p.logger.Warn("storage stats unavailable", slog.Any("error", err))
		return vault.StorageStats{}, err
	}

	p.mu.Lock()
	p.storage = &s
	p.mu.Unlock()
	return s, nil
}

// FetchQuota fetches the caller's limits.
func (p *Presenter) FetchQuota(ctx context.Context, id vault.Identity) (vault.Quota, error) {
	if err := vault.RequireIdentity("quota", id); err != nil {
		return vault.Quota{}, err
	}
	q, err := p.api.Quota(ctx, id.UserID)
	if err != nil {
		p.logger.Warn("quota unavailable", slog.Any("error", err))
		return vault.Quota{}, err
	}

	p.mu.Lock()
	p.quota = &q
	p.mu.Unlock()
	return q, nil
}

// Dashboard returns the last dashboard totals, if any were fetched.
func (p *Presenter) Dashboard() (vault.DashboardStats, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.dashboard == nil {
		return vault.DashboardStats{}, false
	}
	return *p.dashboard, true
}

// Storage returns the last storage figures, if any were fetched.
func (p *Presenter) Storage() (vault.StorageStats, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.storage == nil {
		return vault.StorageStats{}, false
	}
	return *p.storage, true
}

// Quota returns the last quota, if it was fetched.
func (p *Presenter) Quota() (vault.Quota, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.quota == nil {
		return vault.Quota{}, false
	}
	return *p.quota, true
}
