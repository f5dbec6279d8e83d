package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azuridayo/tiptune/internal/config"
	"github.com/azuridayo/tiptune/internal/eventsapi"
	"github.com/azuridayo/tiptune/internal/history"
	"github.com/azuridayo/tiptune/internal/queue"
)

type stubDevice struct{}

func (stubDevice) Start(context.Context, queue.Item) error { return nil }
func (stubDevice) Skip(context.Context, queue.Item) error  { return nil }
func (stubDevice) Active(context.Context) (bool, error)    { return true, nil }
func (stubDevice) Reconcile(context.Context)               {}

type stubExtractor struct {
	titles []Title
	err    error
	gotMsg string
	gotN   int
}

func (e *stubExtractor) ExtractTitles(_ context.Context, message string, count int) ([]Title, error) {
	e.gotMsg = message
	e.gotN = count
	return e.titles, e.err
}

type stubResolver struct {
	uris map[string]string
}

func (r *stubResolver) ResolveTrack(_ context.Context, t Title) (string, error) {
	return r.uris[t.Song], nil
}

type stubMarket struct {
	unavailable map[string]bool
}

func (m *stubMarket) AvailableInMarket(_ context.Context, uri string) (bool, error) {
	return !m.unavailable[uri], nil
}

type stubYouTube struct {
	results []string
	err     error
	gotQ    string
}

func (y *stubYouTube) SearchYouTube(_ context.Context, query string, _ int) ([]string, error) {
	y.gotQ = query
	return y.results, y.err
}

type recordingNotifier struct {
	requester []string
	warnings  []string
}

func (n *recordingNotifier) RequesterOverlay(username, details string, _ int) {
	n.requester = append(n.requester, username+": "+details)
}

func (n *recordingNotifier) WarningOverlay(username, msg string, _ int) {
	n.warnings = append(n.warnings, username+": "+msg)
}

type fixture struct {
	pipe     *Pipeline
	store    *queue.Store
	hist     *history.Log
	notifier *recordingNotifier
	cfg      *config.Config
}

func newFixture(t *testing.T, deps Deps) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := log.New(io.Discard, "", 0)
	f := &fixture{
		store:    queue.NewStore(filepath.Join(dir, "queue_state.json"), stubDevice{}, logger),
		hist:     history.NewLog(filepath.Join(dir, "history.json"), logger),
		notifier: &recordingNotifier{},
	}
	cfg := config.Default()
	cfg.General.SongCost = 27
	cfg.General.SkipSongCost = 51
	cfg.General.MultiRequestTips = true
	cfg.General.AllowSourceOverride = true
	f.cfg = cfg

	deps.Store = f.store
	deps.History = f.hist
	deps.Config = func() config.Config { return *f.cfg }
	deps.Notifier = f.notifier
	deps.Log = logger
	f.pipe = New(deps)
	return f
}

func tip(amount int, message string) eventsapi.TipEvent {
	return eventsapi.TipEvent{Username: "alice", Tokens: amount, Message: message, TS: time.Now()}
}

func TestSongRequestIsResolvedAndEnqueued(t *testing.T) {
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{titles: []Title{{Song: "Mucka Blucka", Artist: "The Chickens"}}},
		Resolver:  &stubResolver{uris: map[string]string{"Mucka Blucka": "spotify:track:AAAAAAAAAA"}},
		Market:    &stubMarket{},
	})

	f.pipe.HandleTip(context.Background(), tip(27, "play mucka blucka"))

	state := f.store.State()
	require.NotNil(t, state.NowPlaying)
	assert.Equal(t, "spotify:track:AAAAAAAAAA", state.NowPlaying.URI)
	assert.Equal(t, "alice", state.NowPlaying.RequestedBy)

	recent := f.hist.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, history.StatusAdded, recent[0].Status)
	assert.Equal(t, "spotify:track:AAAAAAAAAA", recent[0].ResolvedURI)

	require.Len(t, f.notifier.requester, 1)
	assert.Equal(t, "alice: The Chickens - Mucka Blucka", f.notifier.requester[0])
}

func TestNonQualifyingAmountIsIgnored(t *testing.T) {
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{titles: []Title{{Song: "Anything"}}},
		Resolver:  &stubResolver{uris: map[string]string{"Anything": "spotify:track:AAAAAAAAAA"}},
	})

	f.pipe.HandleTip(context.Background(), tip(40, "play anything"))

	assert.Nil(t, f.store.State().NowPlaying)
	assert.Empty(t, f.hist.Recent(0))
}

func TestSkipTipAdvancesQueue(t *testing.T) {
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{titles: []Title{{Song: "First"}, {Song: "Second"}}},
		Resolver: &stubResolver{uris: map[string]string{
			"First":  "spotify:track:AAAAAAAAAA",
			"Second": "spotify:track:BBBBBBBBBB",
		}},
	})
	f.pipe.HandleTip(context.Background(), tip(54, "play first and second"))
	require.Equal(t, "spotify:track:AAAAAAAAAA", f.store.State().NowPlaying.URI)

	f.pipe.HandleTip(context.Background(), tip(51, ""))
	assert.Equal(t, "spotify:track:BBBBBBBBBB", f.store.State().NowPlaying.URI)
}

func TestBlankMessageFailsWithWarning(t *testing.T) {
	ex := &stubExtractor{}
	f := newFixture(t, Deps{Extractor: ex})

	f.pipe.HandleTip(context.Background(), tip(27, "   "))

	recent := f.hist.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, history.StatusFailed, recent[0].Status)
	assert.Equal(t, "blank tip message", recent[0].Error)
	require.Len(t, f.notifier.warnings, 1)
	assert.Contains(t, f.notifier.warnings[0], "tip note was blank")
	assert.Empty(t, ex.gotMsg, "extractor must not run for blank notes")
}

func TestShortMessageGetsHintWrapper(t *testing.T) {
	ex := &stubExtractor{}
	f := newFixture(t, Deps{
		Extractor: ex,
		Resolver:  &stubResolver{uris: map[string]string{}},
	})

	f.pipe.HandleTip(context.Background(), tip(27, "xy"))

	assert.Equal(t, `The song name might be "xy".`, ex.gotMsg)
}

func TestExtractionFailureFallsBackToLiteralTitle(t *testing.T) {
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{err: errors.New("model unavailable")},
		Resolver:  &stubResolver{uris: map[string]string{"wonderwall oasis": "spotify:track:CCCCCCCCCC"}},
	})

	f.pipe.HandleTip(context.Background(), tip(27, "wonderwall oasis"))

	recent := f.hist.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, history.StatusAdded, recent[0].Status)
	assert.Equal(t, "wonderwall oasis", recent[0].Song)
}

func TestPartialBatchFailureContinues(t *testing.T) {
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{titles: []Title{{Song: "Known"}, {Song: "Unknown"}, {Song: "Also Known"}}},
		Resolver: &stubResolver{uris: map[string]string{
			"Known":      "spotify:track:AAAAAAAAAA",
			"Also Known": "spotify:track:BBBBBBBBBB",
		}},
	})

	f.pipe.HandleTip(context.Background(), tip(81, "three songs please"))

	recent := f.hist.Recent(0)
	require.Len(t, recent, 3)
	var added, failed int
	for _, e := range recent {
		switch e.Status {
		case history.StatusAdded:
			added++
		case history.StatusFailed:
			failed++
			assert.Equal(t, "spotify track not found", e.Error)
		}
	}
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, failed)

	state := f.store.State()
	require.NotNil(t, state.NowPlaying)
	assert.Len(t, state.Pending, 1)
}

func TestMarketRejection(t *testing.T) {
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{titles: []Title{{Song: "Regional Hit"}}},
		Resolver:  &stubResolver{uris: map[string]string{"Regional Hit": "spotify:track:DDDDDDDDDD"}},
		Market:    &stubMarket{unavailable: map[string]bool{"spotify:track:DDDDDDDDDD": true}},
	})

	f.pipe.HandleTip(context.Background(), tip(27, "play regional hit"))

	recent := f.hist.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, "not available in market", recent[0].Error)
	require.Len(t, f.notifier.warnings, 1)
	assert.Contains(t, f.notifier.warnings[0], "not available in US market")
	assert.Nil(t, f.store.State().NowPlaying)
}

func TestSourceOverrideUsesLastKeyword(t *testing.T) {
	yt := &stubYouTube{results: []string{"https://youtu.be/dQw4w9WgXcQ"}}
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{titles: []Title{{Song: "Never Gonna Give You Up", Artist: "Rick Astley"}}},
		Resolver:  &stubResolver{uris: map[string]string{"Never Gonna Give You Up": "spotify:track:EEEEEEEEEE"}},
		YouTube:   yt,
	})

	f.pipe.HandleTip(context.Background(), tip(27, "spotify no wait youtube please"))

	state := f.store.State()
	require.NotNil(t, state.NowPlaying)
	assert.Equal(t, queue.SourceYouTube, state.NowPlaying.Source)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", state.NowPlaying.URI)
	assert.Equal(t, "Rick Astley - Never Gonna Give You Up", yt.gotQ)
}

func TestSourceOverrideDisabledUsesDefault(t *testing.T) {
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{titles: []Title{{Song: "A Song"}}},
		Resolver:  &stubResolver{uris: map[string]string{"A Song": "spotify:track:FFFFFFFFFF"}},
	})
	f.cfg.General.AllowSourceOverride = false

	f.pipe.HandleTip(context.Background(), tip(27, "a song on youtube"))

	state := f.store.State()
	require.NotNil(t, state.NowPlaying)
	assert.Equal(t, queue.SourceSpotify, state.NowPlaying.Source)
}

func TestYouTubeDirectURLWinsOverSearch(t *testing.T) {
	yt := &stubYouTube{results: []string{"https://youtu.be/other"}}
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{titles: []Title{{Song: "whatever"}}},
		YouTube:   yt,
	})
	f.cfg.Music.Source = "youtube"

	msg := "play https://www.youtube.com/watch?v=dQw4w9WgXcQ thanks"
	f.pipe.HandleTip(context.Background(), tip(27, msg))

	state := f.store.State()
	require.NotNil(t, state.NowPlaying)
	assert.True(t, strings.HasPrefix(state.NowPlaying.URI, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.Empty(t, yt.gotQ)
}

func TestExtractorURIShortCircuitsResolver(t *testing.T) {
	f := newFixture(t, Deps{
		Extractor: &stubExtractor{titles: []Title{{Song: "Direct", SpotifyURI: "spotify:track:GGGGGGGGGG"}}},
		Resolver:  &stubResolver{uris: map[string]string{}},
	})

	f.pipe.HandleTip(context.Background(), tip(27, "spotify:track:GGGGGGGGGG"))

	state := f.store.State()
	require.NotNil(t, state.NowPlaying)
	assert.Equal(t, "spotify:track:GGGGGGGGGG", state.NowPlaying.URI)
}
