package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-booking/internal/realtime"
)

// RealtimeHandler upgrades dashboard connections and attaches them to the
// hub.
type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	buffer   int
	log      *slog.Logger
}

// NewRealtimeHandler accepts any origin; the desktop app connects from
// file:// pages.
func NewRealtimeHandler(hub *realtime.Hub, log *slog.Logger) *RealtimeHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		buffer: 256,
		log:    log,
	}
}

// Connect handles GET /ws.
func (h *RealtimeHandler) Connect(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return nil
	}
	client := realtime.NewClient(h.hub, conn, uuid.NewString(), h.buffer)
	h.hub.Attach(client)
	go client.WritePump()
	client.ReadPump()
	return nil
}
