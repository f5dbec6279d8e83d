package main

import (
	"net/http"
	"strconv"

	"github.com/azuridayo/tiptune/internal/queue"
	"github.com/labstack/echo/v4"
)

const defaultSearchLimit = 10

func (a *App) handleSearch(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "missing query",
		})
	}

	limit := defaultSearchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "parse limit",
			})
		}
		limit = n
	}

	def := queue.NormalizeSource(a.cfg.Current().Music.Source, queue.SourceSpotify)
	source := queue.NormalizeSource(c.QueryParam("source"), def)

	ctx := c.Request().Context()
	switch source {
	case queue.SourceYouTube:
		tracks, err := a.ytdlp.Search(ctx, q, limit)
		if err != nil {
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error": "youtube search failed",
			})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"source":  source,
			"results": tracks,
		})
	default:
		tracks, err := a.spotify.SearchTracks(ctx, q, limit)
		if err != nil {
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error": "spotify search failed",
			})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"source":  source,
			"results": tracks,
		})
	}
}
