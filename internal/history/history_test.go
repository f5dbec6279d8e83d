package history

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	return NewLog(path, log.New(io.Discard, "", 0)), path
}

func TestAppendStampsAndOrdersNewestFirst(t *testing.T) {
	l, _ := newTestLog(t)

	first := l.Append(Entry{Username: "alice", TipAmount: 27, Status: StatusAdded})
	second := l.Append(Entry{Username: "bob", TipAmount: 54, Status: StatusFailed})

	require.NotEmpty(t, first.ID)
	require.False(t, first.TS.IsZero())
	assert.NotEqual(t, first.ID, second.ID)

	recent := l.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "bob", recent[0].Username)
	assert.Equal(t, "alice", recent[1].Username)
}

func TestRecentHonorsLimit(t *testing.T) {
	l, _ := newTestLog(t)
	for i := 0; i < 5; i++ {
		l.Append(Entry{Username: fmt.Sprintf("user-%d", i), Status: StatusAdded})
	}

	recent := l.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "user-4", recent[0].Username)
}

func TestLogIsBounded(t *testing.T) {
	l, _ := newTestLog(t)
	for i := 0; i < MaxEntries+10; i++ {
		l.Append(Entry{Username: fmt.Sprintf("user-%d", i), Status: StatusAdded})
	}

	recent := l.Recent(0)
	require.Len(t, recent, MaxEntries)
	assert.Equal(t, fmt.Sprintf("user-%d", MaxEntries+9), recent[0].Username)
	assert.Equal(t, "user-10", recent[MaxEntries-1].Username)
}

func TestPersistRoundTrip(t *testing.T) {
	l, path := newTestLog(t)
	l.Append(Entry{Username: "alice", TipAmount: 27, Song: "Song A", Status: StatusAdded})
	l.Append(Entry{Username: "bob", TipAmount: 51, Status: StatusFailed, Error: "no match"})

	reloaded := NewLog(path, log.New(io.Discard, "", 0))
	recent := reloaded.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "bob", recent[0].Username)
	assert.Equal(t, "no match", recent[0].Error)
	assert.Equal(t, "Song A", recent[1].Song)
}

func TestClearEmptiesAndPersists(t *testing.T) {
	l, path := newTestLog(t)
	l.Append(Entry{Username: "alice", Status: StatusAdded})
	l.Clear()

	assert.Empty(t, l.Recent(0))
	reloaded := NewLog(path, log.New(io.Discard, "", 0))
	assert.Empty(t, reloaded.Recent(0))
}
