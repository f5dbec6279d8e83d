package main

import (
	"encoding/json"
	"log"

	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"
)

func (a *App) handleAppWs(c echo.Context) error {
	websocket.Handler(func(ws *websocket.Conn) {
		// Add client to the map
		a.clientsMu.Lock()
		a.clients[ws] = struct{}{}
		a.clientsMu.Unlock()

		defer func() {
			a.clientsMu.Lock()
			delete(a.clients, ws)
			a.clientsMu.Unlock()
		}()

		// Send initial queue state
		infoOnConnect, _ := json.Marshal(echo.Map{
			"type":  "QUEUE_STATE",
			"state": a.queueState(a.ctx),
		})
		err := websocket.Message.Send(ws, string(infoOnConnect))
		if err != nil {
			// conn already closed
			return
		}

		// Keep connection alive and handle any incoming messages
		for {
			msg := ""
			err := websocket.Message.Receive(ws, &msg)
			if err != nil {
				// This break marks the ws closure
				break
			}
			// We don't handle incoming messages from frontend ever
		}
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}

func (a *App) handleBroadcasts() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case msg := <-a.clientsBroadcast:
			a.clientsMu.Lock()
			for ws := range a.clients {
				if err := websocket.Message.Send(ws, msg); err != nil {
					log.Println("Dashboard client send failed, dropping connection")
					ws.Close()
					delete(a.clients, ws)
				}
			}
			a.clientsMu.Unlock()
		}
	}
}
