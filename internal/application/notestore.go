package application

import (
	"errors"
	"strings"
	"time"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// ErrNoteNotFound is returned when no note in the list has the requested id.
var ErrNoteNotFound = errors.New("note not found")

// NoteStore is the in-memory ordered note list. Insertion order is display
// order. It is not safe for concurrent use; Workspace serializes access.
type NoteStore struct {
	notes  []model.Note
	lastID int64
	now    func() time.Time
}

// NewNoteStore creates an empty store. now may be nil to use time.Now.
func NewNoteStore(now func() time.Time) *NoteStore {
	if now == nil {
		now = time.Now
	}
	return &NoteStore{notes: []model.Note{}, now: now}
}

// Add appends a note and reports whether it did. Text that is empty after
// trimming whitespace is rejected and the list is left unchanged.
func (s *NoteStore) Add(title, text string) (model.Note, bool) {
	if strings.TrimSpace(text) == "" {
		return model.Note{}, false
	}

	now := s.stamp()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	note := model.Note{
		ID:        id,
		Title:     title,
		Text:      text,
		UpdatedAt: now,
	}
	s.notes = append(s.notes, note)
	return note, true
}

// Edit replaces the text of the note with the given id and refreshes its
// UpdatedAt. The title is left untouched.
func (s *NoteStore) Edit(id int64, text string) (model.Note, error) {
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes[i].Text = text
			s.notes[i].UpdatedAt = s.stamp()
			return s.notes[i], nil
		}
	}
	return model.Note{}, ErrNoteNotFound
}

// Delete removes the note with the given id, keeping the order of the rest.
func (s *NoteStore) Delete(id int64) error {
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes = append(s.notes[:i:i], s.notes[i+1:]...)
			return nil
		}
	}
	return ErrNoteNotFound
}

// Get returns the note with the given id.
func (s *NoteStore) Get(id int64) (model.Note, bool) {
	for _, n := range s.notes {
		if n.ID == id {
			return n, true
		}
	}
	return model.Note{}, false
}

// List returns a copy of the notes in insertion order.
func (s *NoteStore) List() []model.Note {
	out := make([]model.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Len returns the number of notes.
func (s *NoteStore) Len() int {
	return len(s.notes)
}

// Replace swaps the whole list, as done after a load.
func (s *NoteStore) Replace(notes []model.Note) {
	s.notes = make([]model.Note, len(notes))
	copy(s.notes, notes)

	s.lastID = 0
	for _, n := range s.notes {
		if n.ID > s.lastID {
			s.lastID = n.ID
		}
	}
}

// Clear empties the list.
func (s *NoteStore) Clear() {
	s.notes = []model.Note{}
	s.lastID = 0
}

// stamp returns the current time at the millisecond precision notes are
// stored with, so a saved list loads back equal.
func (s *NoteStore) stamp() time.Time {
	return s.now().Truncate(time.Millisecond).UTC()
}
