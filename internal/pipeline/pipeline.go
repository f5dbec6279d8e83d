// Package pipeline turns qualifying tips into queue mutations: interpreting
// the tip amount, extracting song titles from the tip note, resolving them
// against the configured source and enqueueing the results.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/azuridayo/tiptune/internal/config"
	"github.com/azuridayo/tiptune/internal/eventsapi"
	"github.com/azuridayo/tiptune/internal/history"
	"github.com/azuridayo/tiptune/internal/queue"
	"github.com/azuridayo/tiptune/internal/tipcmd"
)

// Title is one extracted song request.
type Title struct {
	Song       string
	Artist     string
	SpotifyURI string
}

// Extractor pulls song titles out of a tip note.
type Extractor interface {
	ExtractTitles(ctx context.Context, message string, count int) ([]Title, error)
}

// Resolver finds a canonical spotify track URI for a title.
type Resolver interface {
	ResolveTrack(ctx context.Context, t Title) (string, error)
}

// MarketChecker reports whether a spotify track is playable in the user's
// market.
type MarketChecker interface {
	AvailableInMarket(ctx context.Context, uri string) (bool, error)
}

// YouTubeSearcher resolves a free-text query to a youtube watch URL.
type YouTubeSearcher interface {
	SearchYouTube(ctx context.Context, query string, limit int) ([]string, error)
}

// Notifier shows overlays to the room. Calls are fire-and-forget; the
// pipeline never observes the outcome.
type Notifier interface {
	RequesterOverlay(username, songDetails string, seconds int)
	WarningOverlay(username, message string, seconds int)
}

// Pipeline processes tip events. Optional collaborators are checked once at
// construction and replaced with no-op fallbacks when absent.
type Pipeline struct {
	store     *queue.Store
	hist      *history.Log
	cfg       func() config.Config
	extractor Extractor
	resolver  Resolver
	market    MarketChecker
	ytSearch  YouTubeSearcher
	notifier  Notifier
	log       *log.Logger
}

// Deps are the pipeline's collaborators. Extractor, Resolver, MarketChecker,
// YouTubeSearcher and Notifier may be nil.
type Deps struct {
	Store     *queue.Store
	History   *history.Log
	Config    func() config.Config
	Extractor Extractor
	Resolver  Resolver
	Market    MarketChecker
	YouTube   YouTubeSearcher
	Notifier  Notifier
	Log       *log.Logger
}

func New(d Deps) *Pipeline {
	p := &Pipeline{
		store:     d.Store,
		hist:      d.History,
		cfg:       d.Config,
		extractor: d.Extractor,
		resolver:  d.Resolver,
		market:    d.Market,
		ytSearch:  d.YouTube,
		notifier:  d.Notifier,
		log:       d.Log,
	}
	if p.notifier == nil {
		p.notifier = noopNotifier{}
	}
	return p
}

var youtubeURLPattern = regexp.MustCompile(`(?i)(https?://(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)\S+)`)

// HandleTip interprets one tip and carries out the command it buys, if any.
func (p *Pipeline) HandleTip(ctx context.Context, tip eventsapi.TipEvent) {
	cfg := p.cfg()
	costs := tipcmd.Costs{
		SongCost:     cfg.General.SongCost,
		SkipCost:     cfg.General.SkipSongCost,
		MultiRequest: cfg.General.MultiRequestTips,
	}
	cmd := costs.Interpret(tip.Tokens)
	switch cmd.Kind {
	case tipcmd.Skip:
		if !p.store.Advance(ctx) {
			p.notifier.WarningOverlay(tip.Username, "Failed to skip current song", 5)
		}
	case tipcmd.Request:
		p.handleRequest(ctx, cfg, tip, cmd.Count)
	}
}

func (p *Pipeline) handleRequest(ctx context.Context, cfg config.Config, tip eventsapi.TipEvent, count int) {
	message := strings.TrimSpace(tip.Message)
	source := p.requestSource(cfg, message)
	if count < 1 {
		count = 1
	}

	base := history.Entry{
		TipTS:        tip.TS,
		Username:     tip.Username,
		TipAmount:    tip.Tokens,
		TipMessage:   message,
		RequestCount: count,
	}

	if message == "" {
		base.Status = history.StatusFailed
		base.Error = "blank tip message"
		p.hist.Append(base)
		p.notifier.WarningOverlay(tip.Username,
			"Couldn't identify a song in your tip, because the tip note was blank. It may have been removed due to blocked words.", 10)
		return
	}
	if len(message) < 3 {
		message = fmt.Sprintf("The song name might be %q.", message)
		base.TipMessage = message
	}

	titles := p.extractTitles(ctx, message, count)

	for _, title := range titles {
		entry := base
		entry.Song = title.Song
		entry.Artist = title.Artist

		uri, err := p.resolveTitle(ctx, source, message, title)
		if err != nil || uri == "" {
			if err != nil {
				p.log.Printf("resolve %q: %v", title.Song, err)
			}
			entry.Status = history.StatusFailed
			if source == queue.SourceYouTube {
				entry.Error = "youtube track not found"
				p.hist.Append(entry)
				p.notifier.WarningOverlay(tip.Username, "Couldn't find song on YouTube.", 10)
			} else {
				entry.Error = "spotify track not found"
				p.hist.Append(entry)
				p.notifier.WarningOverlay(tip.Username, "Couldn't find song on Spotify. Did you include artist and song name?", 10)
			}
			continue
		}
		entry.ResolvedURI = uri

		if source == queue.SourceSpotify && p.market != nil {
			available, err := p.market.AvailableInMarket(ctx, uri)
			if err != nil {
				p.log.Printf("market check %s: %v", uri, err)
			}
			if err != nil || !available {
				entry.Status = history.StatusFailed
				entry.Error = "not available in market"
				p.hist.Append(entry)
				p.notifier.WarningOverlay(tip.Username, "Requested song not available in US market.", 10)
				continue
			}
		}

		item, err := queue.Normalize(queue.Item{
			Source:      source,
			URI:         uri,
			Name:        title.Song,
			Artists:     artistList(title.Artist),
			RequestedBy: tip.Username,
		}, source)
		if err != nil {
			entry.Status = history.StatusFailed
			entry.Error = err.Error()
			p.hist.Append(entry)
			continue
		}
		p.store.Enqueue(ctx, item)

		details := strings.Trim(fmt.Sprintf("%s - %s", title.Artist, title.Song), " -")
		p.notifier.RequesterOverlay(tip.Username, details, cfg.General.RequestOverlayDuration)

		entry.Status = history.StatusAdded
		p.hist.Append(entry)
	}
}

// requestSource picks the source for this request: the last-occurring
// "spotify"/"youtube" keyword in the note when overrides are allowed,
// otherwise the configured default.
func (p *Pipeline) requestSource(cfg config.Config, message string) queue.Source {
	def := queue.NormalizeSource(cfg.Music.Source, queue.SourceSpotify)
	if !cfg.General.AllowSourceOverride {
		return def
	}
	s := strings.ToLower(message)
	sp := strings.LastIndex(s, "spotify")
	yt := strings.LastIndex(s, "youtube")
	switch {
	case sp < 0 && yt < 0:
		return def
	case sp > yt:
		return queue.SourceSpotify
	default:
		return queue.SourceYouTube
	}
}

func (p *Pipeline) extractTitles(ctx context.Context, message string, count int) []Title {
	if p.extractor != nil {
		titles, err := p.extractor.ExtractTitles(ctx, message, count)
		if err != nil {
			p.log.Printf("title extraction: %v", err)
		}
		if len(titles) > 0 {
			return titles
		}
	}
	// Treat the whole note as one literal title.
	return []Title{{Song: message}}
}

func (p *Pipeline) resolveTitle(ctx context.Context, source queue.Source, message string, title Title) (string, error) {
	if source == queue.SourceYouTube {
		if direct := youtubeURLPattern.FindString(message); direct != "" {
			return direct, nil
		}
		if p.ytSearch == nil {
			return "", nil
		}
		q := strings.Trim(fmt.Sprintf("%s - %s", title.Artist, title.Song), " -")
		results, err := p.ytSearch.SearchYouTube(ctx, q, 1)
		if err != nil || len(results) == 0 {
			return "", err
		}
		return results[0], nil
	}
	if title.SpotifyURI != "" {
		return title.SpotifyURI, nil
	}
	if p.resolver == nil {
		return "", nil
	}
	return p.resolver.ResolveTrack(ctx, title)
}

func artistList(artist string) []string {
	if strings.TrimSpace(artist) == "" {
		return nil
	}
	return []string{artist}
}

type noopNotifier struct{}

func (noopNotifier) RequesterOverlay(string, string, int) {}
func (noopNotifier) WarningOverlay(string, string, int)   {}
