package application_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/notekeeper/internal/application"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

var bob = model.User{ID: "bob", DisplayName: "Bob", Provider: model.ProviderGitHub}

func TestWorkspaceRegistry_OpenLoadsOnce(t *testing.T) {
	store := newMemoryStore()
	store.docs["alice"] = []model.Note{{ID: 1, Text: "stored"}}
	reg := application.NewWorkspaceRegistry(store, application.PersistSync, nil, nil)
	ctx := context.Background()

	ws := reg.Open(ctx, alice)
	again := reg.Open(ctx, alice)

	assert.Same(t, ws, again)
	assert.Len(t, ws.Notes(), 1)
	assert.Equal(t, 1, store.loadCount())
}

func TestWorkspaceRegistry_ConcurrentOpenSharesWorkspace(t *testing.T) {
	reg := application.NewWorkspaceRegistry(newMemoryStore(), application.PersistSync, nil, nil)
	ctx := context.Background()

	const goroutines = 50
	got := make([]*application.Workspace, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := range goroutines {
		go func() {
			defer wg.Done()
			got[i] = reg.Open(ctx, alice)
		}()
	}
	wg.Wait()

	for _, ws := range got {
		assert.Same(t, got[0], ws)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestWorkspaceRegistry_WorkspacesAreIsolatedPerUser(t *testing.T) {
	store := newMemoryStore()
	reg := application.NewWorkspaceRegistry(store, application.PersistSync, nil, nil)
	ctx := context.Background()

	_, _, err := reg.Open(ctx, alice).AddNote(ctx, "", "alice's")
	require.NoError(t, err)

	assert.Empty(t, reg.Open(ctx, bob).Notes())
	assert.Len(t, store.doc("alice"), 1)
	assert.Empty(t, store.doc("bob"))
}

func TestWorkspaceRegistry_SignInSignOutThroughGateway(t *testing.T) {
	store := newMemoryStore()
	store.docs["alice"] = []model.Note{{ID: 1, Text: "stored"}}
	reg := application.NewWorkspaceRegistry(store, application.PersistQueued, nil, nil)
	gw := application.NewAuthGateway([]string{model.ProviderEmail}, nil)
	gw.OnAuthStateChange(reg.HandleAuthStateChange)
	ctx := context.Background()

	gw.SignedIn(ctx, alice)

	ws, ok := reg.Get("alice")
	require.True(t, ok)
	assert.Len(t, ws.Notes(), 1, "list loaded before first render")

	require.NoError(t, gw.SignOut(ctx, alice, nil))

	_, ok = reg.Get("alice")
	assert.False(t, ok)
	assert.Empty(t, ws.Notes(), "sign-out clears the in-memory list")
}

func TestWorkspaceRegistry_RepeatSignInReloads(t *testing.T) {
	store := newMemoryStore()
	reg := application.NewWorkspaceRegistry(store, application.PersistSync, nil, nil)
	ctx := context.Background()

	reg.HandleAuthStateChange(ctx, application.AuthStateChange{User: alice, SignedIn: true})
	store.mu.Lock()
	store.docs["alice"] = []model.Note{{ID: 5, Text: "written elsewhere"}}
	store.mu.Unlock()
	reg.HandleAuthStateChange(ctx, application.AuthStateChange{User: alice, SignedIn: true})

	ws, ok := reg.Get("alice")
	require.True(t, ok)
	assert.Len(t, ws.Notes(), 1)
	assert.Equal(t, 2, store.loadCount())
}

func TestWorkspaceRegistry_CloseAllFlushes(t *testing.T) {
	store := newMemoryStore()
	reg := application.NewWorkspaceRegistry(store, application.PersistQueued, nil, nil)
	ctx := context.Background()

	_, _, err := reg.Open(ctx, alice).AddNote(ctx, "", "a")
	require.NoError(t, err)
	_, _, err = reg.Open(ctx, bob).AddNote(ctx, "", "b")
	require.NoError(t, err)

	require.NoError(t, reg.CloseAll(ctx))
	assert.Equal(t, 0, reg.Len())
	assert.Len(t, store.doc("alice"), 1)
	assert.Len(t, store.doc("bob"), 1)
}

// slotStore keeps one list for every user, like the local backend.
type slotStore struct {
	mu    sync.Mutex
	notes []model.Note
}

func (s *slotStore) Save(_ context.Context, _ string, notes []model.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = slices.Clone(notes)
	return nil
}

func (s *slotStore) Load(_ context.Context, _ string) ([]model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes), nil
}

func (s *slotStore) slot() []model.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes)
}

func TestWorkspaceRegistry_SharedWorkspaceKeepsEveryUsersNotes(t *testing.T) {
	store := &slotStore{}
	clock := newFakeClock()
	reg := application.NewWorkspaceRegistry(store, application.PersistSync, clock.Now, nil, application.WithSharedWorkspace())
	ctx := context.Background()

	_, _, err := reg.Open(ctx, alice).AddNote(ctx, "", "alice note")
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, _, err = reg.Open(ctx, bob).AddNote(ctx, "", "bob note")
	require.NoError(t, err)

	slot := store.slot()
	require.Len(t, slot, 2)
	assert.Equal(t, "alice note", slot[0].Text)
	assert.Equal(t, "bob note", slot[1].Text)
	assert.Equal(t, 1, reg.Len())
}

func TestWorkspaceRegistry_SharedWorkspaceOutlivesFirstSignOut(t *testing.T) {
	reg := application.NewWorkspaceRegistry(&slotStore{}, application.PersistSync, nil, nil, application.WithSharedWorkspace())
	ctx := context.Background()

	ws := reg.Open(ctx, alice)
	assert.Same(t, ws, reg.Open(ctx, bob))

	require.NoError(t, reg.Close(ctx, "alice"))
	got, ok := reg.Get("bob")
	require.True(t, ok, "bob is still signed in")
	assert.Same(t, ws, got)

	require.NoError(t, reg.Close(ctx, "bob"))
	_, ok = reg.Get("bob")
	assert.False(t, ok)
}

func TestWorkspaceRegistry_EvictIdle(t *testing.T) {
	store := newMemoryStore()
	clock := newFakeClock()
	reg := application.NewWorkspaceRegistry(store, application.PersistQueued, clock.Now, nil, application.WithIdleTimeout(30*time.Minute))
	ctx := context.Background()

	stale := reg.Open(ctx, alice)
	_, _, err := stale.AddNote(ctx, "", "pending")
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	reg.Open(ctx, bob)
	clock.Advance(20 * time.Minute)

	assert.Equal(t, 1, reg.EvictIdle(ctx))
	_, ok := reg.Get("alice")
	assert.False(t, ok)
	_, ok = reg.Get("bob")
	assert.True(t, ok)
	assert.Len(t, store.doc("alice"), 1, "pending write flushed on eviction")

	fresh := reg.Open(ctx, alice)
	assert.NotSame(t, stale, fresh)
	assert.Len(t, fresh.Notes(), 1, "reopened workspace reloads")
}

func TestWorkspaceRegistry_EvictIdleDisabled(t *testing.T) {
	clock := newFakeClock()
	reg := application.NewWorkspaceRegistry(newMemoryStore(), application.PersistSync, clock.Now, nil)
	reg.Open(context.Background(), alice)
	clock.Advance(24 * time.Hour)

	assert.Equal(t, 0, reg.EvictIdle(context.Background()))
	assert.Equal(t, 1, reg.Len())
}
