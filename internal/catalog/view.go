package catalog

import (
	"context"
	"sync"

	"github.com/filevault/vaultctl/internal/query"
	"github.com/filevault/vaultctl/internal/vault"
)

// View is the state of one file browser: the search box draft, the
// applied filter and which file's action menu is open. Typing only
// changes the draft; the listing is fetched on Submit, on SaveFilter,
// on the first Mount and on Invalidate.
type View struct {
	store *Store
	id    vault.Identity

	mu       sync.Mutex
	draft    string
	filter   query.Filter
	mounted  bool
	openMenu string
}

// NewView creates a view over store for id, starting with filter applied.
func NewView(store *Store, id vault.Identity, filter query.Filter) *View {
	return &View{store: store, id: id, filter: filter}
}

// SetQuery updates the search box. It never fetches.
func (v *View) SetQuery(text string) {
	v.mu.Lock()
	v.draft = text
	v.mu.Unlock()
}

// Query returns the search box contents.
func (v *View) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// Filter returns the applied filter.
func (v *View) Filter() query.Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Results returns the listing on display.
func (v *View) Results() ResultSet {
	return v.store.Snapshot()
}

// Mount fetches the listing the first time it is called. Later calls
// return the current listing without a request.
func (v *View) Mount(ctx context.Context) (ResultSet, error) {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return v.store.Snapshot(), nil
	}
	v.mounted = true
	v.mu.Unlock()
	return v.Invalidate(ctx)
}

// Submit fetches the listing for the current search box contents.
func (v *View) Submit(ctx context.Context) (ResultSet, error) {
	return v.Invalidate(ctx)
}

// SaveFilter applies f and fetches.
func (v *View) SaveFilter(ctx context.Context, f query.Filter) (ResultSet, error) {
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
	return v.Invalidate(ctx)
}

// ResetFilter clears every filter field and fetches.
func (v *View) ResetFilter(ctx context.Context) (ResultSet, error) {
	return v.SaveFilter(ctx, query.Filter{})
}

// Invalidate fetches the listing again with the current search and
// filter. It is what callers use after a delete or an upload batch.
func (v *View) Invalidate(ctx context.Context) (ResultSet, error) {
	v.mu.Lock()
	text, f := v.draft, v.filter
	v.mu.Unlock()
	return v.store.Refresh(ctx, v.id, text, f)
}

// Delete removes a file and reloads the listing.
func (v *View) Delete(ctx context.Context, fileID string) (ResultSet, error) {
	if err := v.store.Remove(ctx, v.id, fileID); err != nil {
		return v.store.Snapshot(), err
	}
	v.mu.Lock()
	if v.openMenu == fileID {
		v.openMenu = ""
	}
	v.mu.Unlock()
	return v.Invalidate(ctx)
}

// ToggleMenu opens the action menu of fileID, closing any other one, or
// closes it if it is already open. It returns the open menu afterwards.
func (v *View) ToggleMenu(fileID string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.openMenu == fileID {
		v.openMenu = ""
	} else {
		v.openMenu = fileID
	}
	return v.openMenu
}

// OpenMenu returns the file whose menu is open, if any.
func (v *View) OpenMenu() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.openMenu, v.openMenu != ""
}

// CloseMenu closes the open menu.
func (v *View) CloseMenu() {
	v.mu.Lock()
	v.openMenu = ""
	v.mu.Unlock()
}
