// Package azuretable implements the remote NoteListStore on Azure Table Storage.
// Each user owns one entity holding the serialized list. The document is split
// across Notes, Notes1, ... NotesN because a single string property is capped
// at 32K UTF-16 characters; NotesParts records how many properties are in use.
package azuretable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/ericfisherdev/notekeeper/internal/adapter/driven/notejson"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
	"github.com/ericfisherdev/notekeeper/internal/domain/port/driven"
)

// UsersPartition is the partition key shared by all user documents.
const UsersPartition = "users"

const (
	notesProperty = "Notes"
	partsProperty = "NotesParts"

	// maxPropertyChars stays under the 32768 UTF-16 unit string property limit.
	maxPropertyChars = 32000
	// maxParts keeps the entity well inside the 1 MiB entity size limit.
	maxParts = 15
)

// ErrDocumentTooLarge is returned by Save when the serialized list does not
// fit in one entity.
var ErrDocumentTooLarge = errors.New("note document too large")

// Compile-time interface satisfaction check.
var _ driven.NoteListStore = (*NoteStore)(nil)

// tableClient is the subset of *aztables.Client used by NoteStore.
type tableClient interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
}

// NoteStore reads and writes per-user note documents.
type NoteStore struct {
	table  tableClient
	logger *slog.Logger
}

// NewNoteStore wraps an existing table client.
func NewNoteStore(table *aztables.Client, logger *slog.Logger) *NoteStore {
	return newNoteStore(table, logger)
}

func newNoteStore(table tableClient, logger *slog.Logger) *NoteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteStore{table: table, logger: logger}
}

// NewTableClient connects to tableName using connStr and creates the table
// when it does not exist yet.
func NewTableClient(ctx context.Context, connStr, tableName string) (*aztables.Client, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}

	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, fmt.Errorf("table service client: %w", err)
	}

	client := svc.NewClient(tableName)
	if _, err := client.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return nil, fmt.Errorf("create table %s: %w", tableName, err)
		}
	}
	return client, nil
}

// Save overwrites the user's document with the full list.
func (s *NoteStore) Save(ctx context.Context, userID string, notes []model.Note) error {
	if userID == "" {
		return errors.New("save notes: empty user id")
	}

	payload, err := encodeEntity(userID, notes)
	if err != nil {
		return fmt.Errorf("save notes for %s: %w", userID, err)
	}

	_, err = s.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeReplace,
	})
	if err != nil {
		return fmt.Errorf("save notes for %s: %w", userID, err)
	}
	return nil
}

// Load fetches the user's document. A missing document is initialized with an
// empty list before an empty list is returned.
func (s *NoteStore) Load(ctx context.Context, userID string) ([]model.Note, error) {
	if userID == "" {
		return nil, errors.New("load notes: empty user id")
	}

	resp, err := s.table.GetEntity(ctx, UsersPartition, userID, nil)
	if isNotFound(err) {
		s.logger.Info("no note document, initializing", "user_id", userID)
		if err := s.Save(ctx, userID, []model.Note{}); err != nil {
			return nil, err
		}
		return []model.Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load notes for %s: %w", userID, err)
	}

	notes, err := decodeEntity(resp.Value)
	if err != nil {
		return nil, fmt.Errorf("load notes for %s: %w", userID, err)
	}
	return notes, nil
}

func encodeEntity(userID string, notes []model.Note) ([]byte, error) {
	doc, err := json.Marshal(notejson.Document{Notes: notejson.ToRecords(notes)})
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	parts := splitUTF16(string(doc), maxPropertyChars)
	if len(parts) > maxParts {
		return nil, fmt.Errorf("%w: %d notes need %d properties, limit is %d",
			ErrDocumentTooLarge, len(notes), len(parts), maxParts)
	}

	ent := map[string]any{
		"PartitionKey": UsersPartition,
		"RowKey":       userID,
		partsProperty:  len(parts),
	}
	for i, part := range parts {
		ent[partName(i)] = part
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}
	return payload, nil
}

func decodeEntity(data []byte) ([]model.Note, error) {
	var props map[string]json.RawMessage
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}

	// Entities written before the document was split have no parts count.
	count := 1
	if raw, ok := props[partsProperty]; ok {
		if err := json.Unmarshal(raw, &count); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", partsProperty, err)
		}
	}

	var doc strings.Builder
	for i := range count {
		raw, ok := props[partName(i)]
		if !ok {
			if i == 0 {
				break
			}
			return nil, fmt.Errorf("missing property %s of %d", partName(i), count)
		}
		var part string
		if err := json.Unmarshal(raw, &part); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", partName(i), err)
		}
		doc.WriteString(part)
	}
	if doc.Len() == 0 {
		return []model.Note{}, nil
	}

	var d notejson.Document
	if err := json.Unmarshal([]byte(doc.String()), &d); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return notejson.FromRecords(d.Notes), nil
}

func partName(i int) string {
	if i == 0 {
		return notesProperty
	}
	return notesProperty + strconv.Itoa(i)
}

// splitUTF16 cuts s into pieces of at most limit UTF-16 code units without
// separating a surrogate pair.
func splitUTF16(s string, limit int) []string {
	var parts []string
	start, units := 0, 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 1 {
			n = 1
		}
		if units+n > limit {
			parts = append(parts, s[start:i])
			start, units = i, 0
		}
		units += n
	}
	return append(parts, s[start:])
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	return respErr.StatusCode == http.StatusNotFound ||
		respErr.ErrorCode == string(aztables.ResourceNotFound)
}
