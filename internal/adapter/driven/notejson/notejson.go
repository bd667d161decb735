// Package notejson encodes note lists in the JSON shape shared by every
// storage backend: an array of {"id","title","text","updated"} objects where
// id and updated are Unix milliseconds.
package notejson

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// Record is the stored form of a single note.
type Record struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	Updated int64  `json:"updated"`
}

// Document is the per-user remote document.
type Document struct {
	Notes []Record `json:"notes"`
}

// ToRecords converts domain notes to their stored form. The result is never nil.
func ToRecords(notes []model.Note) []Record {
	records := make([]Record, 0, len(notes))
	for _, n := range notes {
		records = append(records, Record{
			ID:      n.ID,
			Title:   n.Title,
			Text:    n.Text,
			Updated: n.UpdatedAt.UnixMilli(),
		})
	}
	return records
}

// FromRecords converts stored records back to domain notes. The result is never nil.
func FromRecords(records []Record) []model.Note {
	notes := make([]model.Note, 0, len(records))
	for _, r := range records {
		notes = append(notes, model.Note{
			ID:        r.ID,
			Title:     r.Title,
			Text:      r.Text,
			UpdatedAt: time.UnixMilli(r.Updated).UTC(),
		})
	}
	return notes
}

// Marshal encodes notes as a JSON array.
func Marshal(notes []model.Note) ([]byte, error) {
	data, err := json.Marshal(ToRecords(notes))
	if err != nil {
		return nil, fmt.Errorf("marshal notes: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a JSON array of notes. Empty input yields an empty list.
func Unmarshal(data []byte) ([]model.Note, error) {
	if len(data) == 0 {
		return []model.Note{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal notes: %w", err)
	}
	return FromRecords(records), nil
}
