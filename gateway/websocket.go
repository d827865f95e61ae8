package gateway

import (
	"codeshare/auth"
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/sink"
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWebSocket joins the session before upgrading, so a refused join is a
// plain HTTP error. One goroutine writes, the request goroutine reads.
func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	sessionID := sessionIDOf(r)

	conn, snapshot, err := h.service.Join(r.Context(), sessionID, identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade the websocket", "session_id", sessionID, "error", err)
		_ = h.service.Disconnect(context.Background(), conn)
		return
	}
	defer ws.Close()
	h.log.Info("Websocket client connected", "session_id", sessionID, "user_id", identity.UserID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(ws, conn, snapshot)
	}()

	h.readPump(ws, conn)
	if err := h.service.Disconnect(context.Background(), conn); err != nil {
		h.log.Debug("Disconnect failed", "session_id", sessionID, "user_id", identity.UserID, "error", err)
	}
	<-done
	h.log.Info("Websocket client disconnected", "session_id", sessionID, "user_id", identity.UserID)
}

func (h *Handler) readPump(ws *websocket.Conn, conn *sink.Connection) {
	ws.SetReadLimit(h.cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	})

	for {
		var msg ClientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			h.log.Debug("Websocket read ended", "session_id", conn.SessionID, "user_id", conn.UserID, "error", err)
			return
		}
		payload, err := DecodePayload(msg.Type, msg.Payload)
		if err != nil {
			h.rejectLocally(conn, msg.Type, err)
			continue
		}
		err = h.service.Submit(context.Background(), conn, msg.Type, payload)
		if errors.Is(err, errors.ErrConnectionClosed) || errors.Is(err, errors.ErrUnknownSession) || errors.Is(err, errors.ErrRelayStopped) {
			return
		}
	}
}

// rejectLocally reports a frame that never reached the session. It goes
// through the connection so the write pump stays the only writer.
func (h *Handler) rejectLocally(conn *sink.Connection, kind domain.IntentKind, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.WriteTimeout)
	defer cancel()
	_ = conn.Consume(ctx, domain.Event{
		Kind:         domain.EventError,
		SessionID:    conn.SessionID,
		OriginUserID: conn.UserID,
		Payload:      domain.ErrorPayload{Code: errors.Code(cause), Message: cause.Error(), Intent: kind},
		At:           time.Now().UTC(),
	})
}

func (h *Handler) writePump(ws *websocket.Conn, conn *sink.Connection, snapshot domain.Snapshot) {
	ping := time.NewTicker(h.cfg.PingInterval)
	defer ping.Stop()

	if err := h.write(ws, Frame{Type: FrameSnapshot, Snapshot: &snapshot}); err != nil {
		_ = ws.Close()
		return
	}
	for {
		select {
		case evt := <-conn.Events():
			if err := h.write(ws, Frame{Type: FrameEvent, Event: &evt}); err != nil {
				_ = ws.Close()
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				_ = ws.Close()
				return
			}
		case <-conn.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(h.cfg.WriteTimeout))
			_ = ws.Close()
			return
		}
	}
}

func (h *Handler) write(ws *websocket.Conn, frame Frame) error {
	_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	if err := ws.WriteJSON(frame); err != nil {
		h.log.Warn("Failed to write websocket frame", "type", frame.Type, "error", err)
		return err
	}
	return nil
}
