package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	applog "onebid/internal/log"
	"onebid/internal/realtime"
	"onebid/internal/validate"
)

// Tables clients may follow on the change feed.
var feedTables = map[string]bool{
	"listings":     true,
	"bids":         true,
	"offers":       true,
	"transactions": true,
	"complaints":   true,
}

// WSHandler streams change events to websocket clients. Events only name
// what changed; clients refetch through the JSON API.
type WSHandler struct {
	Hub *realtime.Hub
}

// Upgrade admits websocket handshakes for a known topic and stores the
// topic for the stream handler.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	var topic string
	if table := c.Params("table"); table != "" {
		if !feedTables[table] {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown table"})
		}
		topic = realtime.TableTopic(table)
	} else {
		id, ok := validate.ID(c.Params("id"))
		if !ok {
			return invalid(c, "id", "invalid listing id")
		}
		topic = realtime.ListingTopic(id)
	}
	c.Locals("topic", topic)
	return c.Next()
}

// Stream forwards hub events until the client goes away or falls behind.
func (h *WSHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		topic, _ := conn.Locals("topic").(string)
		events, cancel := h.Hub.Subscribe(topic)
		defer cancel()

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case evt, open := <-events:
				if !open {
					applog.Info(nil, "ws.dropped.slow", map[string]any{"topic": topic})
					return
				}
				if err := conn.WriteJSON(evt); err != nil {
					return
				}
			}
		}
	})
}
