package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionTogglePair(t *testing.T) {
	s := NewSelection(SortRemarks)
	s.Toggle("a")
	assert.True(t, s.Has("a"))
	s.Toggle("a")
	assert.False(t, s.Has("a"))
	assert.Zero(t, s.Len())
}

func TestSelectionToggleAll(t *testing.T) {
	s := NewSelection(SortRemarks)
	s.Toggle("hidden")
	s.ToggleAll([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, s.IDs(), "partial selection becomes the visible set")

	s.ToggleAll([]string{"a", "b"})
	assert.Empty(t, s.IDs(), "fully selected visible set clears")

	s.ToggleAll(nil)
	assert.Empty(t, s.IDs())
}

func TestSelectionRetainAndRemove(t *testing.T) {
	s := NewSelection(SortRemarks)
	s.SelectAll([]string{"a", "b", "c"})
	s.Remove("b")
	s.Retain([]string{"a", "z"})
	assert.Equal(t, []string{"a"}, s.IDs())
}

func TestSelectionSort(t *testing.T) {
	s := NewSelection(SortRemarks)
	assert.Equal(t, FilterState{SubID: AllGroups, SortKey: SortRemarks, SortDir: Asc}, s.Filter())

	s.SetSort(SortRemarks)
	assert.Equal(t, Desc, s.Filter().SortDir)
	s.SetSort(SortRemarks)
	assert.Equal(t, Asc, s.Filter().SortDir)

	s.SetSort(SortRemarks)
	s.SetSort(SortPort)
	assert.Equal(t, SortPort, s.Filter().SortKey)
	assert.Equal(t, Asc, s.Filter().SortDir)
}

func TestSelectionSettersIndependent(t *testing.T) {
	s := NewSelection(SortRemarks)
	s.Toggle("a")
	s.SetSubID("s1")
	s.SetSearch("hk")
	f := s.Filter()
	assert.Equal(t, "s1", f.SubID)
	assert.Equal(t, "hk", f.Search)
	assert.True(t, s.Has("a"))

	s.SetFilter(FilterState{SubID: AllGroups})
	assert.Empty(t, s.Filter().Search)
	assert.True(t, s.Has("a"))
}
