package handler

import (
	"context"

	"go-pos-checkout/internal/service"
	"go-pos-checkout/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WSHandler struct {
	hub   *ws.Hub
	query *service.TransactionQueryService
	log   *zap.Logger
}

func NewWSHandler(hub *ws.Hub, query *service.TransactionQueryService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{hub: hub, query: query, log: log.Named("ws")}
}

// RequireUpgrade rejects plain HTTP requests on WebSocket routes.
func (h *WSHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Events streams every feed event through the hub.
func (h *WSHandler) Events() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		if !h.hub.Join(c) {
			_ = c.Close()
			return
		}
		defer h.hub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}

type snapshotMessage struct {
	Type         string          `json:"type"`
	Date         string          `json:"date"`
	Transactions interface{}     `json:"transactions"`
	Skipped      int             `json:"skipped"`
	Summary      service.Summary `json:"summary"`
	Warning      string          `json:"warning,omitempty"`
}

// Transactions streams the live listing of ?date= as snapshot messages:
// one when the socket opens and one after every sale on that day.
func (h *WSHandler) Transactions() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub, err := h.query.Subscribe(ctx, c.Query("date"))
		if sub == nil {
			h.log.Warn("subscribe transactions", zap.Error(err))
			_ = c.WriteJSON(fiber.Map{"type": "error", "error": "failed to load transactions"})
			return
		}
		defer sub.Close()

		var warning string
		if err != nil {
			warning = err.Error()
		}

		// The client only ever closes; reading detects that.
		go func() {
			defer cancel()
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for snap := range sub.Updates() {
			msg := snapshotMessage{
				Type:         "snapshot",
				Date:         snap.Date,
				Transactions: snap.Transactions,
				Skipped:      snap.Skipped,
				Summary:      service.Summarize(snap.Transactions),
				Warning:      warning,
			}
			if err := c.WriteJSON(msg); err != nil {
				return
			}
		}
	})
}
