package api

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/kapu/chess-arena/internal/broadcast"
	"github.com/kapu/chess-arena/internal/obslog"
)

// handleEvents upgrades the connection and forwards broadcast frames
// for one topic until either side goes away. Observers that miss
// frames reconcile by re-reading the match record.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if !validTopic(topic) {
		http.Error(w, "unknown topic", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	sub := s.bus.Subscribe(r.Context(), topic)
	defer sub.Close()

	// No inbound messages are expected; CloseRead surfaces the peer
	// disconnect through the returned context.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case frame, ok := <-sub.Events():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				return
			}
		}
	}
}

func validTopic(topic string) bool {
	if topic == broadcast.TopicLobby {
		return true
	}
	return strings.HasPrefix(topic, "match:") && len(topic) > len("match:")
}
