package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lcavalli/medlog/internal/protocol"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
)

// handleTranscriptWS streams transcript segments over a websocket. Each
// inbound segment is processed exactly like a webhook segment and the
// tracker's response is pushed back on the same connection.
func (s *Server) handleTranscriptWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	uid := strings.TrimSpace(r.URL.Query().Get("uid"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	ctx := r.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.metrics.WSMessages.WithLabelValues("inbound", "invalid").Inc()
			if !s.writeWS(conn, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			}) {
				return
			}
			continue
		}

		seg, ok := parsed.(protocol.TranscriptSegment)
		if !ok {
			continue
		}
		s.metrics.WSMessages.WithLabelValues("inbound", string(protocol.TypeTranscriptSegment)).Inc()

		sid := sessionID
		if strings.TrimSpace(seg.SessionID) != "" {
			sid = strings.TrimSpace(seg.SessionID)
		}
		segUID := uid
		if strings.TrimSpace(seg.UID) != "" {
			segUID = strings.TrimSpace(seg.UID)
		}

		resp, err := s.tracker.ProcessTranscript(ctx, sid, segUID, seg.Text)
		if err != nil {
			// The response already carries the error status for the client.
			log.Printf("ws session %s: process transcript: %v", sid, err)
		}
		if !s.writeWS(conn, protocol.TrackerResult{
			Type:      protocol.TypeTrackerResult,
			SessionID: sid,
			Status:    string(resp.Status),
			Message:   resp.Message,
			Response:  resp.Response,
			Data:      resp.Data,
		}) {
			return
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return false
	}
	switch msg.(type) {
	case protocol.TrackerResult:
		s.metrics.WSMessages.WithLabelValues("outbound", string(protocol.TypeTrackerResult)).Inc()
	case protocol.ErrorEvent:
		s.metrics.WSMessages.WithLabelValues("outbound", string(protocol.TypeErrorEvent)).Inc()
	}
	return true
}
