package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"riskierwas/internal/engine"
	"riskierwas/internal/service"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// CmdEnd ends the game from a host socket
const CmdEnd = "end"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// CommandPayload is the payload of a host command message
type CommandPayload struct {
	Index int `json:"index"`
}

// Ack answers a host command
type Ack struct {
	Command string `json:"command"`
	Applied bool   `json:"applied"`
}

// Handler handles WebSocket connections
type Handler struct {
	hub     *Hub
	authSvc *service.AuthService
	gameSvc *service.GameService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService, gameSvc *service.GameService) *Handler {
	return &Handler{
		hub:     hub,
		authSvc: authSvc,
		gameSvc: gameSvc,
	}
}

// HostWS handles GET /v1/ws/games/{code}/host
func (h *Handler) HostWS(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateHostToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	snap, err := h.gameSvc.HostSnapshot(code, claims.HostID)
	if err != nil {
		if errors.Is(err, service.ErrNotGameHost) {
			http.Error(w, err.Error(), http.StatusForbidden)
		} else {
			http.Error(w, err.Error(), http.StatusNotFound)
		}
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		GameCode: code,
		HostID:   claims.HostID,
		IsHost:   true,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
	}

	h.hub.Register(conn)
	h.hub.Reply(conn, MsgState, engine.Event{Kind: engine.EventAdvance, Snapshot: snap})

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// ViewerWS handles GET /v1/ws/games/{code}/view
func (h *Handler) ViewerWS(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])

	snap, err := h.gameSvc.ViewerSnapshot(r.Context(), code)
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		GameCode: code,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
	}

	h.hub.Register(conn)
	h.hub.Reply(conn, MsgState, engine.Event{Kind: engine.EventAdvance, Snapshot: snap})

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		// Displays are read-only
		if conn.IsHost {
			h.handleCommand(conn, data)
		}
	}
}

func (h *Handler) handleCommand(conn *Connection, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.hub.Reply(conn, MsgError, map[string]string{"error": "invalid message"})
		return
	}

	var payload CommandPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.hub.Reply(conn, MsgError, map[string]string{"error": "invalid payload"})
			return
		}
	}

	if string(msg.Type) == CmdEnd {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := h.gameSvc.EndGame(ctx, conn.GameCode, conn.HostID); err != nil {
			h.hub.Reply(conn, MsgError, map[string]string{"error": err.Error()})
		}
		return
	}

	_, applied, err := h.gameSvc.Execute(conn.GameCode, conn.HostID, engine.Command(msg.Type), payload.Index)
	if err != nil {
		h.hub.Reply(conn, MsgError, map[string]string{"error": err.Error()})
		return
	}
	h.hub.Reply(conn, MsgAck, Ack{Command: string(msg.Type), Applied: applied})
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
