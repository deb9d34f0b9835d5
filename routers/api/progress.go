package api

import (
	"log"
	"net/http"
	"time"

	"videogen-server/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressWebSocket pushes a generation's state to the UI: the current
// record first, then every change, then the terminal record before closing.
// The store is the source of truth; the processor writes it.
func (h *GenerationHandler) ProgressWebSocket(c *gin.Context) {
	id := c.Param("generation_id")
	ctx := c.Request.Context()

	gen, err := h.store.Get(ctx, id)
	if err != nil {
		writeLookupError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[API] websocket upgrade for %s failed: %v", id, err)
		return
	}
	defer conn.Close()

	// The request context is not cancelled once the connection is
	// hijacked; a read error or close frame is the only disconnect signal.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gen); err != nil {
		return
	}
	if models.IsTerminalState(gen.State) {
		return
	}

	interval := h.FeedInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := gen
	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			log.Printf("[API] progress feed for %s closed by client", id)
			return
		case <-ticker.C:
		}

		cur, err := h.store.Get(ctx, id)
		if err != nil {
			continue
		}
		if changed(prev, cur) {
			if err := conn.WriteJSON(cur); err != nil {
				return
			}
			prev = cur
		}
		if models.IsTerminalState(cur.State) {
			return
		}
	}
}

func changed(prev, cur *models.Generation) bool {
	return prev.State != cur.State ||
		prev.Progress != cur.Progress ||
		prev.Phase != cur.Phase ||
		prev.RemoteStatus != cur.RemoteStatus
}
