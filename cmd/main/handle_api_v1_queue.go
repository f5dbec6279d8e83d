package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/azuridayo/tiptune/internal/queue"
	"github.com/azuridayo/tiptune/internal/staticservices"
	"github.com/labstack/echo/v4"
)

// playbackReader is the live-player slice of the Spotify service the
// queue-state assembly needs.
type playbackReader interface {
	Player(ctx context.Context) (*staticservices.PlaybackState, error)
}

type queueStateResponse struct {
	Paused         bool         `json:"paused"`
	IsPlaying      bool         `json:"is_playing"`
	NowPlayingItem *queue.Item  `json:"now_playing_item"`
	ProgressMS     int64        `json:"progress_ms"`
	QueuedItems    []queue.Item `json:"queued_items"`
}

func (a *App) queueState(ctx context.Context) queueStateResponse {
	st := a.store.State()
	resp := queueStateResponse{
		Paused:      st.Paused,
		QueuedItems: a.enricher.Enrich(ctx, st.Pending),
	}
	if st.NowPlaying != nil {
		enriched := a.enricher.Enrich(ctx, []queue.Item{*st.NowPlaying})
		resp.NowPlayingItem = &enriched[0]
		switch st.NowPlaying.Source {
		case queue.SourceSpotify:
			state, err := a.player.Player(ctx)
			if err != nil || state == nil || !playbackMatches(state, st.NowPlaying) {
				// Device unreachable, idle, or playing something else:
				// the progress fields stay cleared.
				break
			}
			resp.IsPlaying = state.IsPlaying
			resp.ProgressMS = int64(state.ProgressMS)
		default:
			// Browser-side playback has no live state to poll; report
			// wall-clock progress since the start transition.
			resp.IsPlaying = !st.Paused
			if !st.StartedAt.IsZero() {
				resp.ProgressMS = time.Since(st.StartedAt).Milliseconds()
			}
		}
	}
	return resp
}

// playbackMatches reports whether the live player state refers to the track
// occupying the now-playing slot.
func playbackMatches(state *staticservices.PlaybackState, item *queue.Item) bool {
	if state.TrackURI != "" && state.TrackURI == item.URI {
		return true
	}
	id := queue.ParseSpotifyTrackID(item.URI)
	return id != "" && state.TrackID == id
}

func (a *App) broadcastQueueState() {
	b, err := json.Marshal(echo.Map{
		"type":  "QUEUE_STATE",
		"state": a.queueState(a.ctx),
	})
	if err != nil {
		return
	}
	select {
	case a.clientsBroadcast <- string(b):
	default:
		log.Println("Broadcast channel full, dropping queue state update")
	}
}

func (a *App) handleGetQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, a.queueState(c.Request().Context()))
}

func (a *App) handleAddToQueue(c echo.Context) error {
	body := struct {
		URI         string `json:"uri"`
		Source      string `json:"source"`
		RequestedBy string `json:"requested_by"`
		Position    *int   `json:"position"`
	}{}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "parse request body",
		})
	}

	def := queue.NormalizeSource(a.cfg.Current().Music.Source, queue.SourceSpotify)
	item, err := queue.Normalize(queue.Item{
		Source:      queue.NormalizeSource(body.Source, def),
		URI:         body.URI,
		RequestedBy: body.RequestedBy,
	}, def)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	ctx := c.Request().Context()
	if body.Position != nil {
		a.store.InsertAt(ctx, item, *body.Position)
	} else {
		a.store.Enqueue(ctx, item)
	}
	a.broadcastQueueState()
	return c.JSON(http.StatusOK, a.queueState(ctx))
}

func (a *App) handlePauseQueue(c echo.Context) error {
	a.store.Pause()
	a.broadcastQueueState()
	return c.JSON(http.StatusOK, a.queueState(c.Request().Context()))
}

func (a *App) handleResumeQueue(c echo.Context) error {
	a.store.Resume(c.Request().Context())
	a.broadcastQueueState()
	return c.JSON(http.StatusOK, a.queueState(c.Request().Context()))
}

func (a *App) handleNextInQueue(c echo.Context) error {
	a.store.Advance(c.Request().Context())
	a.broadcastQueueState()
	return c.JSON(http.StatusOK, a.queueState(c.Request().Context()))
}

func (a *App) handleMoveInQueue(c echo.Context) error {
	body := struct {
		From int `json:"from"`
		To   int `json:"to"`
	}{}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "parse request body",
		})
	}
	if err := a.store.Move(body.From, body.To); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrIndexOutOfRange) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, echo.Map{
			"error": err.Error(),
		})
	}
	a.broadcastQueueState()
	return c.JSON(http.StatusOK, a.queueState(c.Request().Context()))
}

func (a *App) handleDeleteFromQueue(c echo.Context) error {
	body := struct {
		Index int `json:"index"`
	}{Index: -1}
	if err := c.Bind(&body); err != nil || body.Index < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "parse queue index",
		})
	}
	if err := a.store.DeleteAt(body.Index); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrIndexOutOfRange) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, echo.Map{
			"error": err.Error(),
		})
	}
	a.broadcastQueueState()
	return c.JSON(http.StatusOK, a.queueState(c.Request().Context()))
}
