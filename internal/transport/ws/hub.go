package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Server to client message types
const (
	MsgState     MessageType = "state"      // engine.Event
	MsgGameEnded MessageType = "game_ended" // model.GameResult
	MsgAck       MessageType = "ack"        // Reply to a host command
	MsgError     MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub manages WebSocket connections for games. A game can have several host
// screens (e.g. a laptop and a phone remote) and any number of displays.
type Hub struct {
	hostConns   map[string]map[*Connection]bool // gameCode -> conns
	viewerConns map[string]map[*Connection]bool

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	closeOnce  sync.Once
}

// Connection represents a WebSocket connection
type Connection struct {
	GameCode string
	HostID   string // Empty for viewer connections
	IsHost   bool
	Send     chan []byte
	Hub      *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	GameCode   string
	ToHosts    bool
	To         *Connection // Set for a reply to one connection
	Disconnect bool        // Close every connection of the game instead
	Message    *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		hostConns:   make(map[string]map[*Connection]bool),
		viewerConns: make(map[string]map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *BroadcastMessage, 256),
		done:        make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			conns := h.connsLocked(conn.IsHost)
			if conns[conn.GameCode] == nil {
				conns[conn.GameCode] = make(map[*Connection]bool)
			}
			conns[conn.GameCode][conn] = true
			if conn.IsHost {
				log.Printf("Host %s connected to game %s", conn.HostID, conn.GameCode)
			} else {
				log.Printf("Display connected to game %s (%d total)", conn.GameCode, len(conns[conn.GameCode]))
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(conn)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			if msg.Disconnect {
				h.mu.Lock()
				for _, conns := range []map[string]map[*Connection]bool{h.hostConns, h.viewerConns} {
					for conn := range conns[msg.GameCode] {
						h.removeLocked(conn)
					}
				}
				log.Printf("Closed all connections of game %s", msg.GameCode)
				h.mu.Unlock()
				continue
			}

			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			switch {
			case msg.To != nil:
				if h.connsLocked(msg.To.IsHost)[msg.To.GameCode][msg.To] {
					trySend(msg.To, data)
				}
			case msg.ToHosts:
				for conn := range h.hostConns[msg.GameCode] {
					trySend(conn, data)
				}
			default:
				for conn := range h.viewerConns[msg.GameCode] {
					trySend(conn, data)
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for _, conns := range []map[string]map[*Connection]bool{h.hostConns, h.viewerConns} {
				for _, set := range conns {
					for conn := range set {
						h.removeLocked(conn)
					}
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) connsLocked(host bool) map[string]map[*Connection]bool {
	if host {
		return h.hostConns
	}
	return h.viewerConns
}

// removeLocked closes Send exactly once; only the hub goroutine calls it
func (h *Hub) removeLocked(conn *Connection) {
	conns := h.connsLocked(conn.IsHost)
	set, ok := conns[conn.GameCode]
	if !ok || !set[conn] {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(conns, conn.GameCode)
	}
	close(conn.Send)
	if conn.IsHost {
		log.Printf("Host %s disconnected from game %s", conn.HostID, conn.GameCode)
	}
}

func trySend(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
		// Drop message if buffer full
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Close disconnects everyone and stops the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ConnectionCount reports hosts and displays connected to a game
func (h *Hub) ConnectionCount(code string) (hosts, viewers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hostConns[code]), len(h.viewerConns[code])
}

// BroadcastToHosts sends a message to every host screen of a game (implements service.Broadcaster)
func (h *Hub) BroadcastToHosts(code string, msgType string, payload interface{}) {
	h.send(&BroadcastMessage{GameCode: code, ToHosts: true, Message: newMessage(MessageType(msgType), payload)})
}

// BroadcastToViewers sends a message to every display of a game (implements service.Broadcaster)
func (h *Hub) BroadcastToViewers(code string, msgType string, payload interface{}) {
	h.send(&BroadcastMessage{GameCode: code, Message: newMessage(MessageType(msgType), payload)})
}

// DisconnectGame closes every connection of a game (implements service.Broadcaster).
// Messages queued before the call are delivered first.
func (h *Hub) DisconnectGame(code string) {
	h.send(&BroadcastMessage{GameCode: code, Disconnect: true})
}

// Reply sends a message to a single connection if it is still registered
func (h *Hub) Reply(conn *Connection, msgType MessageType, payload interface{}) {
	h.send(&BroadcastMessage{GameCode: conn.GameCode, To: conn, Message: newMessage(msgType, payload)})
}

func (h *Hub) send(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func newMessage(msgType MessageType, payload interface{}) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: msgType, Payload: data}
}
