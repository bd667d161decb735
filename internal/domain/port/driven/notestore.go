package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// ErrDocumentNotFound indicates no note document exists yet for the user.
// Adapters that initialize documents on first use do not return it from Load.
var ErrDocumentNotFound = errors.New("note document not found")

// NoteListStore defines the driven port for note list persistence. The whole
// list is read and written at once; there are no partial updates.
type NoteListStore interface {
	// Save overwrites the stored list for userID with notes.
	Save(ctx context.Context, userID string, notes []model.Note) error

	// Load returns the stored list for userID, or an empty list when nothing
	// has been stored yet.
	Load(ctx context.Context, userID string) ([]model.Note, error)
}
