package mediacache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := NewCache()
	c.Put("abc", Metadata{Name: "Song A", Artists: []string{"Artist"}})

	meta, ok := c.Get("abc")
	require.True(t, ok)
	assert.Equal(t, "Song A", meta.Name)

	_, ok = c.Get("never-stored")
	assert.False(t, ok)
}

func TestExpiredEntryIsPurgedOnRead(t *testing.T) {
	now := time.Now()
	c := NewCache()
	c.now = func() time.Time { return now }

	c.Put("abc", Metadata{Name: "Song A"})
	now = now.Add(DefaultTTL + time.Minute)

	_, ok := c.Get("abc")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestEvictionDropsOldestInserted(t *testing.T) {
	c := NewCache()
	for i := 0; i < DefaultMaxEntries+1; i++ {
		c.Put(fmt.Sprintf("track-%d", i), Metadata{Name: fmt.Sprintf("Song %d", i)})
	}

	assert.Equal(t, DefaultMaxEntries, c.Len())
	_, ok := c.Get("track-0")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get("track-1")
	assert.True(t, ok)
	_, ok = c.Get(fmt.Sprintf("track-%d", DefaultMaxEntries))
	assert.True(t, ok)
}

func TestPutExistingKeyRefreshesWithoutEvicting(t *testing.T) {
	c := NewCache()
	for i := 0; i < DefaultMaxEntries; i++ {
		c.Put(fmt.Sprintf("track-%d", i), Metadata{})
	}
	c.Put("track-3", Metadata{Name: "updated"})

	assert.Equal(t, DefaultMaxEntries, c.Len())
	meta, ok := c.Get("track-3")
	require.True(t, ok)
	assert.Equal(t, "updated", meta.Name)
	_, ok = c.Get("track-0")
	assert.True(t, ok)
}

func TestRefreshedEntryIsLastEvictionVictim(t *testing.T) {
	c := NewCache()
	for i := 0; i < DefaultMaxEntries; i++ {
		c.Put(fmt.Sprintf("track-%d", i), Metadata{})
	}
	c.Put("track-0", Metadata{Name: "refreshed"})

	c.Put("track-new", Metadata{})

	assert.Equal(t, DefaultMaxEntries, c.Len())
	meta, ok := c.Get("track-0")
	require.True(t, ok, "just-refreshed entry must not be the eviction victim")
	assert.Equal(t, "refreshed", meta.Name)
	_, ok = c.Get("track-1")
	assert.False(t, ok, "oldest remaining entry should have been evicted")
	_, ok = c.Get("track-new")
	assert.True(t, ok)
}
