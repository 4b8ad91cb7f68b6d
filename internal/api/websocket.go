package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/datalog-viewer/backend/internal/session"
	"github.com/datalog-viewer/backend/internal/storage"
)

// WebSocket message types for the log notification protocol
const (
	// Client -> Server messages
	MsgTypeUpdateOffer = "update:offer"
	MsgTypeUpdateApply = "update:apply"
	MsgTypePing        = "ping"

	// Server -> Client messages
	MsgTypeConnected    = "connected"
	MsgTypeUpdateResult = "update:result"
	MsgTypeUpdate       = string(session.EventUpdate)
	MsgTypeApplied      = string(session.EventApplied)
	MsgTypeClosed       = string(session.EventClosed)
	MsgTypeError        = "error"
	MsgTypePong         = "pong"
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// UpdateOfferPayload carries freshly read log text
type UpdateOfferPayload struct {
	Data     string `json:"data"`               // Base64 encoded log text
	Encoding string `json:"encoding,omitempty"` // "gzip", "none"
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler pushes update notifications for one open log
type WebSocketHandler struct {
	sessionMgr SessionManager
	upgrader   websocket.Upgrader
	readLimit  int64
}

// NewWebSocketHandler creates a new WebSocket handler. maxMessageKB caps
// incoming messages; zero means no limit.
func NewWebSocketHandler(sessionMgr SessionManager, maxMessageKB int) *WebSocketHandler {
	return &WebSocketHandler{
		sessionMgr: sessionMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		readLimit: int64(maxMessageKB) * 1024,
	}
}

// wsConn serialises writes; gorilla allows one concurrent writer
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(msg WSMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg.Timestamp = time.Now().UnixMilli()
	if err := c.ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func (c *wsConn) sendError(id, message, code string) {
	c.send(WSMessage{
		Type: MsgTypeError,
		ID:   id,
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

// HandleWebSocket upgrades the connection and streams events for the log
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	id := c.Param("id")
	sess, ok := wsh.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("log", id)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	if wsh.readLimit > 0 {
		ws.SetReadLimit(wsh.readLimit)
	}

	conn := &wsConn{ws: ws}
	events, cancel := wsh.sessionMgr.Subscribe(id)
	defer cancel()

	fmt.Printf("[WebSocket] Client connected to log %s\n", id)
	conn.send(WSMessage{Type: MsgTypeConnected, ID: id, Payload: mustJSON(sess)})

	done := make(chan struct{})
	go func() {
		defer close(done)
		wsh.readLoop(conn, id)
	}()

	for {
		select {
		case <-done:
			fmt.Printf("[WebSocket] Client disconnected from log %s\n", id)
			return nil
		case ev, ok := <-events:
			if !ok {
				// the log was closed or evicted
				ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "log closed"),
					time.Now().Add(time.Second))
				<-done
				return nil
			}
			conn.send(WSMessage{Type: string(ev.Type), ID: id, Payload: mustJSON(ev)})
		}
	}
}

func (wsh *WebSocketHandler) readLoop(conn *wsConn, id string) {
	for {
		var msg WSMessage
		if err := conn.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			return
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.sessionMgr.TouchSession(id)
			conn.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
		case MsgTypeUpdateOffer:
			wsh.handleUpdateOffer(conn, id, msg)
		case MsgTypeUpdateApply:
			wsh.handleUpdateApply(conn, id, msg)
		default:
			conn.sendError(msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
}

// handleUpdateOffer checks offered log text for an update. A new update is
// also announced to every subscriber through the session events.
func (wsh *WebSocketHandler) handleUpdateOffer(conn *wsConn, id string, msg WSMessage) {
	var payload UpdateOfferPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		conn.sendError(msg.ID, "Invalid offer payload: "+err.Error(), "INVALID_PAYLOAD")
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		conn.sendError(msg.ID, "Invalid base64 data", "INVALID_PAYLOAD")
		return
	}
	if payload.Encoding == "gzip" {
		if data, err = decompressGzip(data); err != nil {
			conn.sendError(msg.ID, "Invalid gzip data: "+err.Error(), "INVALID_PAYLOAD")
			return
		}
	}

	offer, err := wsh.sessionMgr.CheckUpdate(id, storage.DecodeText(data))
	if err != nil {
		apiErr := sessionError(id, err)
		conn.sendError(msg.ID, apiErr.Message, apiErr.Code)
		return
	}
	conn.send(WSMessage{Type: MsgTypeUpdateResult, ID: msg.ID, Payload: mustJSON(offer)})
}

func (wsh *WebSocketHandler) handleUpdateApply(conn *wsConn, id string, msg WSMessage) {
	if _, err := wsh.sessionMgr.ApplyUpdate(context.Background(), id); err != nil {
		apiErr := sessionError(id, err)
		conn.sendError(msg.ID, apiErr.Message, apiErr.Code)
	}
	// success is reported through the applied event
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
