package application_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// --- Mock implementations ---

type saveCall struct {
	UserID string
	Notes  []model.Note
}

// memoryStore is an in-memory NoteListStore that records every call.
type memoryStore struct {
	mu      sync.Mutex
	docs    map[string][]model.Note
	saves   []saveCall
	loads   int
	loadErr error
	saveErr error

	// gate, when non-nil, blocks each Save until a value is received.
	gate chan struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: map[string][]model.Note{}}
}

func (m *memoryStore) Save(_ context.Context, userID string, notes []model.Note) error {
	if m.gate != nil {
		<-m.gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, saveCall{UserID: userID, Notes: slices.Clone(notes)})
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[userID] = slices.Clone(notes)
	return nil
}

func (m *memoryStore) Load(_ context.Context, userID string) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	notes, ok := m.docs[userID]
	if !ok {
		return []model.Note{}, nil
	}
	return slices.Clone(notes), nil
}

func (m *memoryStore) saveCalls() []saveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.saves)
}

func (m *memoryStore) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func (m *memoryStore) doc(userID string) []model.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.docs[userID])
}

var errStoreDown = errors.New("store down")

// fakeClock returns a fixed time that tests advance by hand.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, time.March, 5, 7, 4, 9, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeFederatedProvider struct {
	name string
	user model.User
	err  error
}

func (f *fakeFederatedProvider) Name() string { return f.name }

func (f *fakeFederatedProvider) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (f *fakeFederatedProvider) Exchange(_ context.Context, _ string) (model.User, error) {
	return f.user, f.err
}
