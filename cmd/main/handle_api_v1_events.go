package main

import (
	"net/http"
	"strconv"

	"github.com/azuridayo/tiptune/internal/eventsapi"
	"github.com/labstack/echo/v4"
)

func (a *App) handleRecentEvents(c echo.Context) error {
	if a.events == nil {
		return c.JSON(http.StatusOK, echo.Map{
			"events": []eventsapi.RecentEvent{},
		})
	}
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "parse limit",
			})
		}
		limit = n
	}
	return c.JSON(http.StatusOK, echo.Map{
		"events": a.events.Recent(limit),
	})
}
