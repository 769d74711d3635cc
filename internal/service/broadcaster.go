package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToHosts(code string, msgType string, payload interface{})
	BroadcastToViewers(code string, msgType string, payload interface{})
	DisconnectGame(code string)
}

// WebSocket message types pushed by the services
const (
	MsgState     = "state"
	MsgGameEnded = "game_ended"
)
