package main

import (
	"log"
	"net/http"

	"github.com/azuridayo/tiptune/internal/staticservices"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

type deviceResponse struct {
	staticservices.SpotifyDevice
	Selected bool `json:"selected"`
}

func (a *App) handleGetDevices(c echo.Context) error {
	devices, err := a.spotify.Devices(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error": "list playback devices failed",
		})
	}
	selected := a.spotify.DeviceID()
	return c.JSON(http.StatusOK, echo.Map{
		"devices": lo.Map(devices, func(d staticservices.SpotifyDevice, _ int) deviceResponse {
			return deviceResponse{SpotifyDevice: d, Selected: d.ID == selected}
		}),
	})
}

func (a *App) handleSelectDevice(c echo.Context) error {
	body := struct {
		DeviceID string `json:"device_id"`
	}{}
	if err := c.Bind(&body); err != nil || body.DeviceID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "parse request body",
		})
	}
	if err := a.spotify.TransferPlayback(c.Request().Context(), body.DeviceID, false); err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error": "transfer playback failed",
		})
	}
	if err := a.settings.SavePlaybackDeviceID(body.DeviceID); err != nil {
		log.Println("Failed to persist playback device id:", err)
	}
	return c.NoContent(http.StatusOK)
}
