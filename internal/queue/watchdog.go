package queue

import (
	"context"
	"log"
	"time"
)

const (
	// DefaultTickInterval is how often the reconciler inspects the queue.
	DefaultTickInterval = 5 * time.Second

	// stallThreshold is the grace period after a track starts before the
	// device's "not playing" report is believed.
	stallThreshold = 5 * time.Second
)

// Reconciler is the periodic watchdog that keeps the store's belief about
// playback aligned with what the device actually reports. It starts the next
// track when the device goes idle with pending items, and advances past a
// now-playing track the device no longer reports as active.
type Reconciler struct {
	store    *Store
	device   Device
	interval time.Duration
	log      *log.Logger
}

func NewReconciler(store *Store, device Device, logger *log.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		device:   device,
		interval: DefaultTickInterval,
		log:      logger,
	}
}

// Run ticks until ctx is cancelled. An in-flight tick always completes before
// Run returns.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick performs one reconciliation pass.
func (r *Reconciler) Tick(ctx context.Context) {
	r.device.Reconcile(ctx)

	// Cheap no-op when the preconditions do not hold.
	r.store.StartNextIfIdle(ctx)

	state := r.store.State()
	if state.Paused || state.NowPlaying == nil {
		return
	}
	if state.NowPlaying.Source != SourceSpotify {
		// Only Spotify exposes live playback status to poll against.
		return
	}
	if state.StartedAt.IsZero() || time.Since(state.StartedAt) <= stallThreshold {
		return
	}

	active, err := r.device.Active(ctx)
	if err != nil {
		r.log.Printf("Playback status check failed: %v", err)
		return
	}
	if !active {
		// A single not-playing observation is taken to mean the track ended
		// or failed externally. A transient hiccup past the grace period will
		// be advanced past too; tolerated for simplicity.
		r.log.Printf("Device reports not playing for %s, advancing queue", state.NowPlaying.URI)
		r.store.Advance(ctx)
	}
}
