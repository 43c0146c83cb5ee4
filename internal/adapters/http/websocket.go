package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/trailwhisper/internal/adapters/nats"
	"github.com/samirrijal/trailwhisper/internal/pkg/metrics"
)

const userLocal = "user_id"

// Event types sent to WebSocket clients.
const (
	EventActivityUploaded = "activity.uploaded"
	EventActivityDeleted  = "activity.deleted"
)

// wsEvent wraps a broker payload for the client.
type wsEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// wsMessage is a client request. Only {"action":"ping"} is understood.
type wsMessage struct {
	Action string `json:"action"`
}

// WebSocketHandler relays the connected user's upload and delete events so
// open clients can refresh their activity list and visit summaries.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		user, _ := c.Locals(userLocal).(string)
		log := slog.Default().With("remote", c.RemoteAddr().String(), "user_id", user)

		if nc == nil {
			_ = c.WriteJSON(map[string]string{"error": "event relay unavailable"})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		log.Info("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(eventType string) nats.MsgHandler {
			return func(msg *nats.Msg) {
				_ = writeJSON(wsEvent{Type: eventType, Data: json.RawMessage(msg.Data)})
			}
		}

		var subs []*nats.Subscription
		defer func() {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
		}()
		for subject, eventType := range map[string]string{
			natsadapter.UploadedSubject(user): EventActivityUploaded,
			natsadapter.DeletedSubject(user):  EventActivityDeleted,
		} {
			sub, err := nc.Subscribe(subject, relay(eventType))
			if err != nil {
				log.Error("ws subscribe failed", "subject", subject, "error", err)
				return
			}
			subs = append(subs, sub)
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			switch m.Action {
			case "ping":
				_ = writeJSON(map[string]string{"status": "pong"})
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		log.Info("ws client disconnected")
	}
}
