package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced by the router middleware for the REST surface;
		// the websocket endpoint mirrors that permissiveness.
		return true
	},
}

// wsMessage is the envelope streamed to websocket clients
type wsMessage struct {
	Type     string                 `json:"type"` // "progress", "result", "error"
	Progress *pipeline.Event        `json:"progress,omitempty"`
	Result   *pipeline.SearchResult `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// StreamHandler runs scans over a websocket, streaming progress events
// followed by the final result
type StreamHandler struct {
	coordinator *pipeline.Coordinator
}

// NewStreamHandler creates a new websocket scan handler
func NewStreamHandler(coordinator *pipeline.Coordinator) *StreamHandler {
	return &StreamHandler{coordinator: coordinator}
}

// Stream upgrades the connection and runs one scan per connection. Request
// parameters arrive as query parameters, same as the synchronous endpoint.
func (h *StreamHandler) Stream(c *gin.Context) {
	req, errMsg := parseSearchRequest(c)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("Handlers: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Gorilla allows one concurrent writer, so the scan runs in a goroutine
	// and every write happens on this one.
	type scanOutcome struct {
		result *pipeline.SearchResult
		err    error
	}
	events := make(chan pipeline.Event, 32)
	outcome := make(chan scanOutcome, 1)

	go func() {
		result, err := h.coordinator.Search(c.Request.Context(), req, func(e pipeline.Event) {
			events <- e
		})
		close(events)
		outcome <- scanOutcome{result: result, err: err}
	}()

	for e := range events {
		e := e
		if err := conn.WriteJSON(wsMessage{Type: "progress", Progress: &e}); err != nil {
			log.Warnf("Handlers: websocket progress write failed: %v", err)
			// Keep draining so the scan goroutine never blocks on the channel.
			for range events {
			}
			break
		}
	}

	o := <-outcome
	if o.err != nil {
		if err := conn.WriteJSON(wsMessage{Type: "error", Error: o.err.Error()}); err != nil {
			log.Warnf("Handlers: websocket error write failed: %v", err)
		}
		return
	}
	if err := conn.WriteJSON(wsMessage{Type: "result", Result: o.result}); err != nil {
		log.Warnf("Handlers: websocket result write failed: %v", err)
	}
}
