package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/notekeeper/internal/application"
	"github.com/ericfisherdev/notekeeper/internal/domain/model"
)

func TestNoteStore_AddAppendsLast(t *testing.T) {
	clock := newFakeClock()
	s := application.NewNoteStore(clock.Now)

	first, ok := s.Add("A", "one")
	require.True(t, ok)
	clock.Advance(time.Second)
	second, ok := s.Add("B", "two")
	require.True(t, ok)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, first, list[0])
	assert.Equal(t, second, list[1])
	assert.Equal(t, clock.Now().UnixMilli(), second.ID)
	assert.Equal(t, clock.Now(), second.UpdatedAt)
}

func TestNoteStore_AddEmptyTextIsNoop(t *testing.T) {
	s := application.NewNoteStore(nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, ok := s.Add("T", text)
		assert.False(t, ok, "text %q", text)
	}
	assert.Equal(t, 0, s.Len())
}

func TestNoteStore_IDsStayUniqueWithinSameMillisecond(t *testing.T) {
	clock := newFakeClock()
	s := application.NewNoteStore(clock.Now)

	a, _ := s.Add("", "a")
	b, _ := s.Add("", "b")
	c, _ := s.Add("", "c")

	assert.Less(t, a.ID, b.ID)
	assert.Less(t, b.ID, c.ID)
}

func TestNoteStore_EditChangesOnlyText(t *testing.T) {
	clock := newFakeClock()
	s := application.NewNoteStore(clock.Now)
	a, _ := s.Add("A", "one")
	b, _ := s.Add("B", "two")

	clock.Advance(time.Minute)
	edited, err := s.Edit(a.ID, "uno")
	require.NoError(t, err)

	assert.Equal(t, a.ID, edited.ID)
	assert.Equal(t, "A", edited.Title)
	assert.Equal(t, "uno", edited.Text)
	assert.Equal(t, clock.Now(), edited.UpdatedAt)

	list := s.List()
	assert.Equal(t, edited, list[0])
	assert.Equal(t, b, list[1])
}

func TestNoteStore_EditUnknownID(t *testing.T) {
	s := application.NewNoteStore(nil)
	s.Add("A", "one")
	before := s.List()

	_, err := s.Edit(12345, "x")
	assert.ErrorIs(t, err, application.ErrNoteNotFound)
	assert.Equal(t, before, s.List())
}

func TestNoteStore_DeletePreservesOrder(t *testing.T) {
	s := application.NewNoteStore(newFakeClock().Now)
	a, _ := s.Add("", "a")
	b, _ := s.Add("", "b")
	c, _ := s.Add("", "c")

	require.NoError(t, s.Delete(b.ID))

	assert.Equal(t, []model.Note{a, c}, s.List())
	assert.ErrorIs(t, s.Delete(b.ID), application.ErrNoteNotFound)
	assert.Equal(t, 2, s.Len())
}

func TestNoteStore_ListIsACopy(t *testing.T) {
	s := application.NewNoteStore(nil)
	s.Add("", "a")

	list := s.List()
	list[0].Text = "mutated"

	assert.Equal(t, "a", s.List()[0].Text)
}

func TestNoteStore_ReplaceKeepsIDsIncreasing(t *testing.T) {
	clock := newFakeClock()
	s := application.NewNoteStore(clock.Now)
	future := clock.Now().Add(time.Hour).UnixMilli()
	s.Replace([]model.Note{{ID: future, Text: "from the future"}})

	n, ok := s.Add("", "now")
	require.True(t, ok)
	assert.Equal(t, future+1, n.ID)
}

func TestNoteStore_Clear(t *testing.T) {
	s := application.NewNoteStore(nil)
	s.Add("", "a")
	s.Clear()
	assert.Empty(t, s.List())
}

// Mirrors the add → edit → delete walk-through from an empty list.
func TestNoteStore_Scenario(t *testing.T) {
	s := application.NewNoteStore(nil)

	n, ok := s.Add("T1", "hello")
	require.True(t, ok)
	require.Len(t, s.List(), 1)
	assert.Equal(t, "T1", s.List()[0].Title)
	assert.Equal(t, "hello", s.List()[0].Text)

	_, err := s.Edit(n.ID, "world")
	require.NoError(t, err)
	assert.Equal(t, "world", s.List()[0].Text)

	require.NoError(t, s.Delete(n.ID))
	assert.Empty(t, s.List())

	_, ok = s.Add("T", "")
	assert.False(t, ok)
	assert.Empty(t, s.List())
}

func TestNoteStore_TimestampsHaveMillisecondPrecision(t *testing.T) {
	now := time.Date(2024, time.March, 5, 3, 4, 5, 123456789, time.FixedZone("CET", 3600))
	s := application.NewNoteStore(func() time.Time { return now })

	added, ok := s.Add("", "text")
	require.True(t, ok)
	want := time.Date(2024, time.March, 5, 2, 4, 5, 123000000, time.UTC)
	assert.Equal(t, want, added.UpdatedAt)
	assert.Equal(t, added.ID, added.UpdatedAt.UnixMilli())

	edited, err := s.Edit(added.ID, "changed")
	require.NoError(t, err)
	assert.Equal(t, want, edited.UpdatedAt)
}
