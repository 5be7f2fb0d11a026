package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/roadcap/internal/pkg/metrics"
)

// wsMessage is sent from client to follow or stop following a view.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	View   string `json:"view"`
}

// sceneRelay forwards the scenes of one subscription in revision order.
// The stream replays its last stored scene on subscribe, which can be older
// than the scene sent directly, so anything not newer than the last frame
// written is dropped.
type sceneRelay struct {
	mu     sync.Mutex
	last   uint64
	closed bool
	write  func([]byte) error
}

func (r *sceneRelay) forward(data []byte) error {
	var head struct {
		Revision uint64 `json:"revision"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || head.Revision <= r.last {
		return nil
	}
	r.last = head.Revision
	return r.write(data)
}

func (r *sceneRelay) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// WebSocketHandler returns a handler that pushes scene updates of one view.
// Clients either connect with ?view=<id> or send
// {"action":"subscribe","view":"<id>"}. Subscribing again switches views.
// Scenes arrive with increasing revision numbers.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

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

		var (
			current string
			relay   *sceneRelay
			stop    func()
		)
		unsubscribe := func() {
			if stop != nil {
				stop()
				stop = nil
			}
			if relay != nil {
				relay.close()
				relay = nil
			}
			current = ""
		}
		subscribe := func(viewID string) {
			scene, err := deps.Views.Scene(viewID)
			if err != nil {
				_ = writeJSON(map[string]string{"error": err.Error(), "view": viewID})
				return
			}
			unsubscribe()
			_ = writeJSON(map[string]string{"status": "subscribed", "view": viewID})

			r := &sceneRelay{write: func(data []byte) error {
				mu.Lock()
				defer mu.Unlock()
				return c.WriteMessage(websocket.TextMessage, data)
			}}
			if data, err := json.Marshal(scene); err == nil {
				_ = r.forward(data)
			}
			if deps.Scenes != nil {
				s, err := deps.Scenes.WatchScenes(ctx, viewID, func(data []byte) {
					if err := r.forward(data); err != nil {
						slog.Debug("ws relay dropped scene", "view", viewID, "error", err)
					}
				})
				if err != nil {
					slog.Warn("ws watch failed", "view", viewID, "error", err)
					r.close()
					_ = writeJSON(map[string]string{"error": "subscribe failed", "view": viewID})
					return
				}
				stop = s
			}
			relay, current = r, viewID
		}

		if viewID := c.Query("view"); viewID != "" {
			subscribe(viewID)
		}

		// Keep-alive ping
		done := make(chan struct{})
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
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "subscribe":
				if m.View == "" {
					_ = writeJSON(map[string]string{"error": "view is required"})
					continue
				}
				if m.View == current {
					_ = writeJSON(map[string]string{"status": "already subscribed", "view": current})
					continue
				}
				subscribe(m.View)

			case "unsubscribe":
				if current == "" {
					_ = writeJSON(map[string]string{"error": "not subscribed"})
					continue
				}
				view := current
				unsubscribe()
				_ = writeJSON(map[string]string{"status": "unsubscribed", "view": view})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		unsubscribe()
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
