package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins are vetted by the CORS middleware in front of us.
	CheckOrigin: func(*http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// userEvents streams the user's progression events over a websocket. The
// client drives evolution and level-up animations off this feed.
func (h *handler) userEvents(w http.ResponseWriter, r *http.Request) {
	if h.deps.Hub == nil {
		writeError(w, apperrors.Internal(nil, "event streaming is not enabled"))
		return
	}
	userID := chi.URLParam(r, "id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch, cancel := h.deps.Hub.Subscribe()
	defer cancel()

	// Drain client frames so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.UserID != userID {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
