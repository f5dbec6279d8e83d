package main

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleSpotifyStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"authenticated": a.flow.Authenticated(),
		"device_id":     a.spotify.DeviceID(),
	})
}

func (a *App) handleSpotifyConnect(c echo.Context) error {
	authURL, err := a.flow.Begin()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"auth_url": authURL,
	})
}

// handleSpotifyCallback receives the authorization redirect from Spotify.
func (a *App) handleSpotifyCallback(c echo.Context) error {
	if errParam := c.QueryParam("error"); errParam != "" {
		log.Println("Spotify authorization denied:", errParam)
		return c.Redirect(http.StatusFound, "/?spotify=denied")
	}
	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if err := a.flow.Complete(c.Request().Context(), code, state); err != nil {
		log.Println("Spotify authorization failed:", err)
		return c.Redirect(http.StatusFound, "/?spotify=failed")
	}
	return c.Redirect(http.StatusFound, "/?spotify=connected")
}

func (a *App) handleSpotifyDisconnect(c echo.Context) error {
	if err := a.flow.Disconnect(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "disconnect failed",
		})
	}
	return c.NoContent(http.StatusOK)
}
