package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/notekeeper/internal/adapter/driven/notejson"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

// NotesSlotKey is the fixed local_storage key holding the serialized note list.
const NotesSlotKey = "notes"

// Compile-time interface satisfaction check.
var _ driven.NoteListStore = (*NoteRepo)(nil)

// NoteRepo is the local NoteListStore. Storage is device-local, so every user
// shares the single NotesSlotKey slot and userID is ignored.
type NoteRepo struct {
	db *DB
}

// NewNoteRepo creates a new NoteRepo backed by the given DB.
func NewNoteRepo(db *DB) *NoteRepo {
	return &NoteRepo{db: db}
}

// Save serializes the full list into the notes slot, replacing what was there.
func (r *NoteRepo) Save(ctx context.Context, _ string, notes []model.Note) error {
	data, err := notejson.Marshal(notes)
	if err != nil {
		return err
	}

	if err := r.setSlot(ctx, NotesSlotKey, string(data)); err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	return nil
}

// Load deserializes the notes slot. An absent slot yields an empty list.
func (r *NoteRepo) Load(ctx context.Context, _ string) ([]model.Note, error) {
	value, err := r.getSlot(ctx, NotesSlotKey)
	if errors.Is(err, driven.ErrDocumentNotFound) {
		return []model.Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	return notejson.Unmarshal([]byte(value))
}

func (r *NoteRepo) setSlot(ctx context.Context, key, value string) error {
	const query = `INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := r.db.Writer.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set slot %q: %w", key, err)
	}
	return nil
}

func (r *NoteRepo) getSlot(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM local_storage WHERE key = ?`

	var value string
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", driven.ErrDocumentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get slot %q: %w", key, err)
	}
	return value, nil
}
