package mediacache

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/azuridayo/tiptune/internal/queue"
)

// maxLookupsPerPass caps upstream lookups per enrichment pass. Misses beyond
// the cap stay bare and are picked up on a later pass.
const maxLookupsPerPass = 10

// MetadataProvider resolves display metadata for a track reference.
type MetadataProvider interface {
	TrackMetadata(ctx context.Context, item queue.Item) (Metadata, error)
}

// Enricher decorates queue items and history rows with cached metadata,
// fetching misses from per-source providers.
type Enricher struct {
	cache     *Cache
	providers map[queue.Source]MetadataProvider
	log       *log.Logger
}

func NewEnricher(cache *Cache, providers map[queue.Source]MetadataProvider, logger *log.Logger) *Enricher {
	return &Enricher{cache: cache, providers: providers, log: logger}
}

func (e *Enricher) Cache() *Cache {
	return e.cache
}

// Enrich fills in display metadata on a copy of items. Cached entries apply
// immediately; at most maxLookupsPerPass cache misses are resolved upstream,
// concurrently. Lookup failures leave the item bare.
func (e *Enricher) Enrich(ctx context.Context, items []queue.Item) []queue.Item {
	out := make([]queue.Item, len(items))
	copy(out, items)

	var missIdx []int
	for i, it := range out {
		if meta, ok := e.cache.Get(Key(it)); ok {
			apply(&out[i], meta)
			continue
		}
		if _, ok := e.providers[it.Source]; ok && len(missIdx) < maxLookupsPerPass {
			missIdx = append(missIdx, i)
		}
	}
	if len(missIdx) == 0 {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookupsPerPass)
	for _, i := range missIdx {
		i := i
		g.Go(func() error {
			it := out[i]
			meta, err := e.providers[it.Source].TrackMetadata(gctx, it)
			if err != nil {
				e.log.Printf("metadata lookup failed for %s: %v", it.URI, err)
				return nil
			}
			e.cache.Put(Key(it), meta)
			apply(&out[i], meta)
			return nil
		})
	}
	g.Wait()
	return out
}

func apply(it *queue.Item, meta Metadata) {
	if it.TrackID == "" {
		it.TrackID = meta.TrackID
	}
	if it.Name == "" {
		it.Name = meta.Name
	}
	if len(it.Artists) == 0 {
		it.Artists = meta.Artists
	}
	if it.Album == "" {
		it.Album = meta.Album
	}
	if it.DurationMS == 0 {
		it.DurationMS = meta.DurationMS
	}
	if meta.Explicit {
		it.Explicit = true
	}
	if it.ImageURL == "" {
		it.ImageURL = meta.ImageURL
	}
	if it.ExternalURL == "" {
		it.ExternalURL = meta.ExternalURL
	}
}
