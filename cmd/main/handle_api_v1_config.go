package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleGetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, a.cfg.ForUI())
}

func (a *App) handleUpdateConfig(c echo.Context) error {
	updates := map[string]map[string]string{}
	if err := c.Bind(&updates); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "parse request body",
		})
	}
	if err := a.cfg.Update(updates); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "save config failed",
		})
	}
	return c.JSON(http.StatusOK, a.cfg.ForUI())
}
