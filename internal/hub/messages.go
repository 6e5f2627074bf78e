// internal/hub/messages.go
package hub

import "github.com/jason-s-yu/absurdly/internal/game"

// Outbound message types.
const (
	TypeGameUpdate = "game_update"
	TypeNavigate   = "navigate"
	TypeError      = "error"
)

// GameUpdate is a per-player snapshot; the snapshot fields sit at the top level.
type GameUpdate struct {
	Type string `json:"type"`
	game.GameSnapshot
}

// Navigate tells the client which page matches the room's phase.
type Navigate struct {
	Type  string `json:"type"`
	Route string `json:"route"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewGameUpdate(snap game.GameSnapshot) GameUpdate {
	return GameUpdate{Type: TypeGameUpdate, GameSnapshot: snap}
}

func NewNavigate(route string) Navigate {
	return Navigate{Type: TypeNavigate, Route: route}
}
