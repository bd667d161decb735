package azuretable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

// Service limits enforced by fakeTable.
const (
	servicePropertyLimit = 32 * 1024 // UTF-16 units per string property
	serviceEntityLimit   = 1 << 20   // bytes per entity
)

// fakeTable is an in-memory tableClient keyed by partition/row. It rejects
// entities the real service would refuse for size.
type fakeTable struct {
	mu       sync.Mutex
	entities map[string][]byte
	upserts  int
	getErr   error
	putErr   error
}

func newFakeTable() *fakeTable {
	return &fakeTable{entities: map[string][]byte{}}
}

func (f *fakeTable) GetEntity(_ context.Context, pk, rk string, _ *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return aztables.GetEntityResponse{}, f.getErr
	}
	data, ok := f.entities[pk+"/"+rk]
	if !ok {
		return aztables.GetEntityResponse{}, &azcore.ResponseError{
			StatusCode: http.StatusNotFound,
			ErrorCode:  string(aztables.ResourceNotFound),
		}
	}
	return aztables.GetEntityResponse{Value: data}, nil
}

func (f *fakeTable) UpsertEntity(_ context.Context, entity []byte, _ *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return aztables.UpsertEntityResponse{}, f.putErr
	}
	var keys struct {
		PartitionKey string
		RowKey       string
	}
	if err := json.Unmarshal(entity, &keys); err != nil {
		return aztables.UpsertEntityResponse{}, err
	}
	if err := checkServiceLimits(entity); err != nil {
		return aztables.UpsertEntityResponse{}, err
	}
	f.entities[keys.PartitionKey+"/"+keys.RowKey] = entity
	f.upserts++
	return aztables.UpsertEntityResponse{}, nil
}

func checkServiceLimits(entity []byte) error {
	var props map[string]any
	if err := json.Unmarshal(entity, &props); err != nil {
		return err
	}
	total := 0
	for name, v := range props {
		str, ok := v.(string)
		if !ok {
			continue
		}
		units := len(utf16.Encode([]rune(str)))
		if units > servicePropertyLimit {
			return &azcore.ResponseError{
				StatusCode: http.StatusBadRequest,
				ErrorCode:  "PropertyValueTooLarge",
			}
		}
		total += 2 * (units + len(name))
	}
	if total > serviceEntityLimit {
		return &azcore.ResponseError{
			StatusCode: http.StatusBadRequest,
			ErrorCode:  "EntityTooLarge",
		}
	}
	return nil
}

func storedProps(t *testing.T, table *fakeTable, userID string) map[string]any {
	t.Helper()
	stored, ok := table.entities[UsersPartition+"/"+userID]
	require.True(t, ok)
	var props map[string]any
	require.NoError(t, json.Unmarshal(stored, &props))
	return props
}

func TestNoteStore_FirstLoadInitializesEmptyDocument(t *testing.T) {
	table := newFakeTable()
	store := newNoteStore(table, nil)

	notes, err := store.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, 1, table.upserts)

	props := storedProps(t, table, "user-1")
	assert.JSONEq(t, `{"notes":[]}`, props["Notes"].(string))
	assert.EqualValues(t, 1, props["NotesParts"])
}

func TestNoteStore_SaveThenLoad(t *testing.T) {
	table := newFakeTable()
	store := newNoteStore(table, nil)
	ctx := context.Background()

	want := []model.Note{
		{ID: 1, Title: "T1", Text: "hello", UpdatedAt: time.UnixMilli(1000).UTC()},
		{ID: 2, Title: "T2", Text: "world", UpdatedAt: time.UnixMilli(2000).UTC()},
	}
	require.NoError(t, store.Save(ctx, "user-1", want))

	got, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNoteStore_DocumentsAreKeyedByUser(t *testing.T) {
	table := newFakeTable()
	store := newNoteStore(table, nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "alice", []model.Note{{ID: 1, Text: "a"}}))

	got, err := store.Load(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNoteStore_LoadPropagatesOtherErrors(t *testing.T) {
	table := newFakeTable()
	table.getErr = errors.New("network down")
	store := newNoteStore(table, nil)

	_, err := store.Load(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
	assert.Equal(t, 0, table.upserts)
}

func TestNoteStore_SavePropagatesErrors(t *testing.T) {
	table := newFakeTable()
	table.putErr = errors.New("throttled")
	store := newNoteStore(table, nil)

	err := store.Save(context.Background(), "user-1", nil)
	assert.ErrorContains(t, err, "throttled")
}

func TestNoteStore_RejectsEmptyUserID(t *testing.T) {
	store := newNoteStore(newFakeTable(), nil)

	_, err := store.Load(context.Background(), "")
	assert.Error(t, err)
	assert.Error(t, store.Save(context.Background(), "", nil))
}

func TestEncodeEntity_Keys(t *testing.T) {
	payload, err := encodeEntity("user-9", nil)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, UsersPartition, raw["PartitionKey"])
	assert.Equal(t, "user-9", raw["RowKey"])
	assert.JSONEq(t, `{"notes":[]}`, raw["Notes"].(string))
	assert.EqualValues(t, 1, raw["NotesParts"])
}

func TestDecodeEntity_MissingNotesProperty(t *testing.T) {
	notes, err := decodeEntity([]byte(`{"PartitionKey":"users","RowKey":"u"}`))
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestNoteStore_LargeListSpansSeveralProperties(t *testing.T) {
	table := newFakeTable()
	store := newNoteStore(table, nil)
	ctx := context.Background()

	want := make([]model.Note, 200)
	for i := range want {
		want[i] = model.Note{
			ID:        int64(i + 1),
			Title:     fmt.Sprintf("note %d", i+1),
			Text:      strings.Repeat("groceries and errands ", 50),
			UpdatedAt: time.UnixMilli(int64(i) * 1000).UTC(),
		}
	}
	require.NoError(t, store.Save(ctx, "user-1", want))

	props := storedProps(t, table, "user-1")
	parts := props["NotesParts"].(float64)
	assert.Greater(t, parts, 1.0)
	assert.Contains(t, props, "Notes1")

	got, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNoteStore_SplitKeepsSurrogatePairsWhole(t *testing.T) {
	table := newFakeTable()
	store := newNoteStore(table, nil)
	ctx := context.Background()

	// Each emoji is two UTF-16 units; an odd prefix pushes pairs across the cut.
	want := []model.Note{{ID: 1, Text: "x" + strings.Repeat("😀", 40000), UpdatedAt: time.UnixMilli(5).UTC()}}
	require.NoError(t, store.Save(ctx, "user-1", want))

	got, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNoteStore_ShrinkingListDropsStaleParts(t *testing.T) {
	table := newFakeTable()
	store := newNoteStore(table, nil)
	ctx := context.Background()

	big := []model.Note{{ID: 1, Text: strings.Repeat("a", 100000)}}
	require.NoError(t, store.Save(ctx, "user-1", big))

	small := []model.Note{{ID: 2, Text: "short", UpdatedAt: time.UnixMilli(7).UTC()}}
	require.NoError(t, store.Save(ctx, "user-1", small))

	props := storedProps(t, table, "user-1")
	assert.NotContains(t, props, "Notes1")

	got, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, small, got)
}

func TestNoteStore_OversizedListIsRejectedBeforeWriting(t *testing.T) {
	table := newFakeTable()
	store := newNoteStore(table, nil)

	huge := []model.Note{{ID: 1, Text: strings.Repeat("a", maxParts*maxPropertyChars)}}
	err := store.Save(context.Background(), "user-1", huge)
	require.ErrorIs(t, err, ErrDocumentTooLarge)
	assert.Equal(t, 0, table.upserts)
}

func TestNoteStore_ReadsSinglePropertyDocuments(t *testing.T) {
	notes, err := decodeEntity([]byte(`{"PartitionKey":"users","RowKey":"u","Notes":"{\"notes\":[{\"id\":3,\"title\":\"t\",\"text\":\"legacy\",\"updated\":1000}]}"}`))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "legacy", notes[0].Text)
	assert.Equal(t, time.UnixMilli(1000).UTC(), notes[0].UpdatedAt)
}

func TestDecodeEntity_MissingPart(t *testing.T) {
	_, err := decodeEntity([]byte(`{"Notes":"{\"notes\":","NotesParts":2}`))
	assert.ErrorContains(t, err, "Notes1")
}

func TestSplitUTF16(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  []string
	}{
		{name: "fits", in: "abc", limit: 3, want: []string{"abc"}},
		{name: "even cut", in: "abcdef", limit: 3, want: []string{"abc", "def"}},
		{name: "pair not split", in: "a😀b", limit: 2, want: []string{"a", "😀", "b"}},
		{name: "multibyte utf8 single unit", in: "ééé", limit: 2, want: []string{"éé", "é"}},
		{name: "empty", in: "", limit: 4, want: []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitUTF16(tt.in, tt.limit))
		})
	}
}
