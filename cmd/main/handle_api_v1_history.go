package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/azuridayo/tiptune/internal/history"
	"github.com/azuridayo/tiptune/internal/mediacache"
	"github.com/azuridayo/tiptune/internal/queue"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

func (a *App) handleGetHistory(c echo.Context) error {
	limit := history.MaxEntries
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "parse limit",
			})
		}
		limit = n
	}
	cache := a.enricher.Cache()
	entries := lo.Map(a.hist.Recent(limit), func(e history.Entry, _ int) history.Entry {
		if e.ResolvedURI == "" || e.Song != "" {
			return e
		}
		if meta, ok := cache.Get(mediacache.Key(queue.Item{URI: e.ResolvedURI})); ok {
			e.Song = meta.Name
			e.Artist = strings.Join(meta.Artists, ", ")
		}
		return e
	})
	return c.JSON(http.StatusOK, echo.Map{
		"entries": entries,
	})
}

func (a *App) handleClearHistory(c echo.Context) error {
	a.hist.Clear()
	return c.NoContent(http.StatusOK)
}
