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

var (
	// ErrWorkspaceClosed is returned by mutations on a workspace whose user signed out.
	ErrWorkspaceClosed = errors.New("workspace closed")
	// ErrNotLoaded is returned by mutations while the stored list cannot be
	// read. Persisting then would overwrite the stored list with a partial one.
	ErrNotLoaded = errors.New("notes not loaded")
)

// NoteState pairs a note with its per-note view state.
type NoteState struct {
	Note    model.Note
	Editing bool
}

// Workspace is the signed-in user's controller: it owns the note list, applies
// user actions to it, persists after every mutation and tracks which notes are
// in the Editing state. All methods are safe for concurrent use.
type Workspace struct {
	mu        sync.Mutex
	user      model.User
	notes     *NoteStore
	editing   map[int64]bool
	loaded    bool
	closed    bool
	store     driven.NoteListStore
	persister persister
	logger    *slog.Logger
}

// NewWorkspace creates an empty, not yet loaded workspace for user.
func NewWorkspace(user model.User, store driven.NoteListStore, mode PersistMode, now func() time.Time, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("user_id", user.ID)

	return &Workspace{
		user:      user,
		notes:     NewNoteStore(now),
		editing:   map[int64]bool{},
		store:     store,
		persister: newPersister(mode, store, user.ID, logger),
		logger:    logger,
	}
}

// User returns the workspace owner.
func (w *Workspace) User() model.User {
	return w.user
}

// Load replaces the in-memory list with the stored one. A failed load is
// logged and leaves the list as it was; the next EnsureLoaded retries.
func (w *Workspace) Load(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loadLocked(ctx)
}

// EnsureLoaded loads the stored list unless a load already succeeded.
func (w *Workspace) EnsureLoaded(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loaded && !w.closed {
		w.loadLocked(ctx)
	}
}

func (w *Workspace) loadLocked(ctx context.Context) bool {
	notes, err := w.store.Load(ctx, w.user.ID)
	if err != nil {
		w.logger.Error("error getting notes", "error", err)
		return false
	}
	w.notes.Replace(notes)
	w.resetEditingLocked()
	w.loaded = true
	w.logger.Info("notes loaded", "count", len(notes))
	return true
}

// readyLocked gates every mutation: the workspace must be open and its list
// loaded, retrying the load once if an earlier one failed.
func (w *Workspace) readyLocked(ctx context.Context) error {
	if w.closed {
		return ErrWorkspaceClosed
	}
	if !w.loaded && !w.loadLocked(ctx) {
		return ErrNotLoaded
	}
	return nil
}

// Loaded reports whether a load has succeeded.
func (w *Workspace) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded
}

// AddNote appends a note and persists. Empty text is a no-op reported as false.
func (w *Workspace) AddNote(ctx context.Context, title, text string) (model.Note, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(ctx); err != nil {
		return model.Note{}, false, err
	}

	note, ok := w.notes.Add(title, text)
	if !ok {
		return model.Note{}, false, nil
	}
	if err := w.persistLocked(ctx); err != nil {
		return note, true, err
	}
	return note, true, nil
}

// BeginEdit moves a note from Viewing to Editing.
func (w *Workspace) BeginEdit(id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWorkspaceClosed
	}
	if !w.loaded {
		return ErrNotLoaded
	}

	if _, ok := w.notes.Get(id); !ok {
		return ErrNoteNotFound
	}
	w.editing[id] = true
	return nil
}

// ConfirmEdit stores the edited text, persists, and returns every note to
// Viewing. It is also the direct edit operation for API callers, where the
// note need not be in the Editing state first.
func (w *Workspace) ConfirmEdit(ctx context.Context, id int64, text string) (model.Note, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(ctx); err != nil {
		return model.Note{}, err
	}

	note, err := w.notes.Edit(id, text)
	if err != nil {
		return model.Note{}, err
	}
	w.resetEditingLocked()
	if err := w.persistLocked(ctx); err != nil {
		return note, err
	}
	return note, nil
}

// DeleteNote removes a note in any state, persists, and returns every note to Viewing.
func (w *Workspace) DeleteNote(ctx context.Context, id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(ctx); err != nil {
		return err
	}

	if err := w.notes.Delete(id); err != nil {
		return err
	}
	w.resetEditingLocked()
	return w.persistLocked(ctx)
}

// Notes returns the list in display order.
func (w *Workspace) Notes() []model.Note {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notes.List()
}

// Snapshot returns the list in display order with each note's view state.
func (w *Workspace) Snapshot() []NoteState {
	w.mu.Lock()
	defer w.mu.Unlock()

	notes := w.notes.List()
	states := make([]NoteState, 0, len(notes))
	for _, n := range notes {
		states = append(states, NoteState{Note: n, Editing: w.editing[n.ID]})
	}
	return states
}

// Flush waits for queued writes to finish.
func (w *Workspace) Flush(ctx context.Context) error {
	return w.persister.flush(ctx)
}

// Close clears the in-memory list, waits for pending writes and stops the
// writer. Further mutations return ErrWorkspaceClosed.
func (w *Workspace) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.notes.Clear()
	w.resetEditingLocked()
	w.mu.Unlock()

	err := w.persister.flush(ctx)
	w.persister.close()
	return err
}

func (w *Workspace) persistLocked(ctx context.Context) error {
	return w.persister.persist(ctx, w.notes.List())
}

func (w *Workspace) resetEditingLocked() {
	clear(w.editing)
}
