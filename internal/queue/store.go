package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"
)

// Device is the external playback backend the store drives. Start must either
// begin playback of item or return an error; Skip asks the backend to drop its
// live playback of item; Active reports whether the backend is currently
// playing anything; Reconcile lets the driver realign its own internal queue
// bookkeeping with reality before the store makes decisions.
type Device interface {
	Start(ctx context.Context, item Item) error
	Skip(ctx context.Context, item Item) error
	Active(ctx context.Context) (bool, error)
	Reconcile(ctx context.Context)
}

// startTimeout bounds the external start-playback call issued by
// StartNextIfIdle. A timeout is treated like any other start failure.
const startTimeout = 8 * time.Second

// Store owns the ordered pending list and the now-playing slot. All mutation
// is serialized by a single mutex held across the change and the persist step,
// so the snapshot file and in-memory state never diverge as observed by a
// concurrent reader.
type Store struct {
	mu         sync.Mutex
	pending    []Item
	nowPlaying *Item
	paused     bool
	startedAt  time.Time

	path   string
	device Device
	log    *log.Logger
}

// State is a read-only copy of the store handed to the web facade.
type State struct {
	Pending    []Item    `json:"queued_items"`
	NowPlaying *Item     `json:"now_playing_item"`
	Paused     bool      `json:"paused"`
	StartedAt  time.Time `json:"-"`
}

type snapshot struct {
	TS             int64  `json:"ts"`
	Paused         bool   `json:"paused"`
	StartedAt      *int64 `json:"started_at,omitempty"`
	NowPlayingItem *Item  `json:"now_playing_item"`
	QueuedItems    []Item `json:"queued_items"`
}

// NewStore loads the snapshot at path (starting empty when the file is
// missing or corrupt) and returns a store driving device.
func NewStore(path string, device Device, logger *log.Logger) *Store {
	s := &Store{
		path:   path,
		device: device,
		log:    logger,
	}
	s.loadSnapshot()
	return s
}

// State returns a copy of the current queue state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := State{
		Pending:   append([]Item(nil), s.pending...),
		Paused:    s.paused,
		StartedAt: s.startedAt,
	}
	if s.nowPlaying != nil {
		np := *s.nowPlaying
		out.NowPlaying = &np
	}
	return out
}

// Enqueue appends item to the pending list, then starts it immediately if the
// queue is idle.
func (s *Store) Enqueue(ctx context.Context, item Item) bool {
	s.mu.Lock()
	s.pending = append(s.pending, item)
	s.persistLocked()
	s.mu.Unlock()
	s.StartNextIfIdle(ctx)
	return true
}

// InsertAt inserts item at index, clamped to [0, len(pending)].
func (s *Store) InsertAt(ctx context.Context, item Item, index int) bool {
	s.mu.Lock()
	if index < 0 {
		index = 0
	}
	if index > len(s.pending) {
		index = len(s.pending)
	}
	s.pending = append(s.pending[:index], append([]Item{item}, s.pending[index:]...)...)
	s.persistLocked()
	s.mu.Unlock()
	s.StartNextIfIdle(ctx)
	return true
}

// Move removes the item at from and reinserts it at to, preserving the
// relative order of everything else. Returns ErrIndexOutOfRange when either
// index is outside the pending list; from == to is a successful no-op.
func (s *Store) Move(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pending)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	item := s.pending[from]
	s.pending = append(s.pending[:from], s.pending[from+1:]...)
	s.pending = append(s.pending[:to], append([]Item{item}, s.pending[to:]...)...)
	s.persistLocked()
	return nil
}

// DeleteAt removes the pending item at index.
func (s *Store) DeleteAt(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.pending) {
		return ErrIndexOutOfRange
	}
	s.pending = append(s.pending[:index], s.pending[index+1:]...)
	s.persistLocked()
	return nil
}

// Pause stops the queue from starting further tracks. The current track is
// allowed to finish. Idempotent.
func (s *Store) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.persistLocked()
	return true
}

// Resume clears the paused flag and starts the next track if the queue is
// idle.
func (s *Store) Resume(ctx context.Context) bool {
	s.mu.Lock()
	s.paused = false
	s.persistLocked()
	s.mu.Unlock()
	s.StartNextIfIdle(ctx)
	return true
}

// Advance clears the now-playing slot and starts the next pending track. For
// a Spotify track it also asks the device to skip its live playback first,
// best effort: local state is cleared even when that call fails, since local
// invariants must not depend on external call success for non-starting
// transitions.
func (s *Store) Advance(ctx context.Context) bool {
	s.mu.Lock()
	outgoing := s.nowPlaying
	s.mu.Unlock()

	if outgoing != nil && outgoing.Source == SourceSpotify {
		if err := s.device.Skip(ctx, *outgoing); err != nil {
			s.log.Printf("Skip request to playback device failed: %v", err)
		}
	}

	s.mu.Lock()
	s.nowPlaying = nil
	s.startedAt = time.Time{}
	s.persistLocked()
	s.mu.Unlock()

	return s.StartNextIfIdle(ctx)
}

// StartNextIfIdle is the single transition that populates the now-playing
// slot. It fires only when the queue is not paused, nothing is playing and
// the pending list is non-empty. The popped item is persisted as now-playing
// before the external start command is issued; if that command fails or times
// out the transition is rolled back and the item returns to the head of the
// pending list. External start calls are treated as idempotent retries, so
// momentarily recording a track as playing before the command lands is
// acceptable; losing the item is not.
func (s *Store) StartNextIfIdle(ctx context.Context) bool {
	s.mu.Lock()
	if s.paused || s.nowPlaying != nil || len(s.pending) == 0 {
		s.mu.Unlock()
		return false
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	s.nowPlaying = &next
	s.startedAt = time.Now()
	s.persistLocked()
	s.mu.Unlock()

	if next.Source != SourceSpotify {
		// Browser-side playback; the dashboard picks the item up from the
		// queue state, there is no command to issue.
		return true
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	err := s.device.Start(startCtx, next)
	cancel()
	if err != nil {
		s.log.Printf("Start playback failed, rolling back %s: %v", next.URI, err)
		s.mu.Lock()
		s.nowPlaying = nil
		s.startedAt = time.Time{}
		s.pending = append([]Item{next}, s.pending...)
		s.persistLocked()
		s.mu.Unlock()
		return false
	}
	return true
}

// persistLocked writes the snapshot file. Callers must hold the store mutex.
// The write goes to a temporary path first and is renamed over the
// destination so a crash mid-write cannot corrupt the snapshot.
func (s *Store) persistLocked() {
	snap := snapshot{
		TS:             time.Now().Unix(),
		Paused:         s.paused,
		NowPlayingItem: s.nowPlaying,
		QueuedItems:    s.pending,
	}
	if !s.startedAt.IsZero() {
		ts := s.startedAt.Unix()
		snap.StartedAt = &ts
	}
	if snap.QueuedItems == nil {
		snap.QueuedItems = []Item{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.log.Printf("Failed to encode queue snapshot: %v", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.log.Printf("Failed to write queue snapshot: %v", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Printf("Failed to replace queue snapshot: %v", err)
	}
}

func (s *Store) loadSnapshot() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Printf("Failed to read queue snapshot, starting empty: %v", err)
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Printf("Corrupt queue snapshot, starting empty: %v", err)
		return
	}
	s.pending = snap.QueuedItems
	s.nowPlaying = snap.NowPlayingItem
	s.paused = snap.Paused
	if snap.StartedAt != nil {
		s.startedAt = time.Unix(*snap.StartedAt, 0)
	}
}
