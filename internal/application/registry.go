package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

// sharedKey is the registry key of the single workspace in shared mode.
const sharedKey = ""

// RegistryOption configures a WorkspaceRegistry.
type RegistryOption func(*WorkspaceRegistry)

// WithSharedWorkspace backs every user with one workspace. Use it when the
// store keeps a single list regardless of user id, so concurrent users edit
// one list instead of overwriting each other's saves.
func WithSharedWorkspace() RegistryOption {
	return func(r *WorkspaceRegistry) { r.shared = true }
}

// WithIdleTimeout lets EvictIdle close workspaces unused for longer than d.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *WorkspaceRegistry) { r.idleTimeout = d }
}

type registryEntry struct {
	ws       *Workspace
	members  map[string]struct{}
	lastUsed time.Time
}

// WorkspaceRegistry holds the open workspaces. It subscribes to the
// AuthGateway: sign-in opens and loads a workspace, sign-out closes it once
// no signed-in user remains on it.
type WorkspaceRegistry struct {
	mu          sync.Mutex
	entries     map[string]*registryEntry
	store       driven.NoteListStore
	mode        PersistMode
	now         func() time.Time
	shared      bool
	idleTimeout time.Duration
	logger      *slog.Logger
}

// NewWorkspaceRegistry creates a registry whose workspaces persist to store.
func NewWorkspaceRegistry(store driven.NoteListStore, mode PersistMode, now func() time.Time, logger *slog.Logger, opts ...RegistryOption) *WorkspaceRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &WorkspaceRegistry{
		entries: map[string]*registryEntry{},
		store:   store,
		mode:    mode,
		now:     now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *WorkspaceRegistry) key(userID string) string {
	if r.shared {
		return sharedKey
	}
	return userID
}

func (r *WorkspaceRegistry) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

// Open returns the user's workspace, creating it if needed, and makes sure its
// list has been loaded before returning.
func (r *WorkspaceRegistry) Open(ctx context.Context, user model.User) *Workspace {
	k := r.key(user.ID)

	r.mu.Lock()
	e, ok := r.entries[k]
	if !ok {
		e = &registryEntry{
			ws:      NewWorkspace(user, r.store, r.mode, r.now, r.logger),
			members: map[string]struct{}{},
		}
		r.entries[k] = e
	}
	e.members[user.ID] = struct{}{}
	e.lastUsed = r.clock()
	r.mu.Unlock()

	e.ws.EnsureLoaded(ctx)
	return e.ws
}

// Get returns the user's workspace if one is open.
func (r *WorkspaceRegistry) Get(userID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[r.key(userID)]
	if !ok {
		return nil, false
	}
	return e.ws, true
}

// Close removes the user from their workspace, clearing and dropping it when
// the user was its last member.
func (r *WorkspaceRegistry) Close(ctx context.Context, userID string) error {
	k := r.key(userID)

	r.mu.Lock()
	e, ok := r.entries[k]
	if ok {
		delete(e.members, userID)
		if len(e.members) > 0 {
			ok = false
		} else {
			delete(r.entries, k)
		}
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return e.ws.Close(ctx)
}

// HandleAuthStateChange is the AuthGateway listener.
func (r *WorkspaceRegistry) HandleAuthStateChange(ctx context.Context, change AuthStateChange) {
	if change.SignedIn {
		_, existed := r.Get(change.User.ID)
		ws := r.Open(ctx, change.User)
		// A fresh sign-in always re-reads the stored list.
		if existed {
			ws.Load(ctx)
		}
		return
	}

	if err := r.Close(ctx, change.User.ID); err != nil {
		r.logger.Error("error closing workspace", "user_id", change.User.ID, "error", err)
	}
}

// EvictIdle closes workspaces not opened within the idle timeout. Pending
// writes are flushed first; an evicted user's next request reloads the list.
// It returns the number of workspaces closed.
func (r *WorkspaceRegistry) EvictIdle(ctx context.Context) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.clock().Add(-r.idleTimeout)

	r.mu.Lock()
	var idle []*Workspace
	for k, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, e.ws)
			delete(r.entries, k)
		}
	}
	r.mu.Unlock()

	for _, ws := range idle {
		if err := ws.Close(ctx); err != nil {
			r.logger.Error("error closing idle workspace", "user_id", ws.User().ID, "error", err)
		}
	}
	if len(idle) > 0 {
		r.logger.Info("evicted idle workspaces", "count", len(idle))
	}
	return len(idle)
}

// Run evicts idle workspaces every interval until ctx is cancelled.
func (r *WorkspaceRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle(ctx)
		}
	}
}

// CloseAll flushes and closes every workspace, typically at shutdown.
func (r *WorkspaceRegistry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	all := r.entries
	r.entries = map[string]*registryEntry{}
	r.mu.Unlock()

	var errs []error
	for _, e := range all {
		if err := e.ws.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of open workspaces.
func (r *WorkspaceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
