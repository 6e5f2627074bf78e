// internal/game/errors.go
package game

import (
	"errors"

	"github.com/jason-s-yu/absurdly/internal/models"
)

// Validation errors. A call that returns one of these has not mutated the session.
var (
	ErrRoomFull         = errors.New("game is full")
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	ErrUnknownPlayer    = errors.New("player is not in this game")
	ErrAlreadyAnswered  = errors.New("player already submitted an answer")
	ErrCardNotInHand    = errors.New("card is not in the player's hand")
	ErrInvalidPhase     = errors.New("action not allowed in the current phase")
	ErrNotHost          = errors.New("only the host can do that")
	ErrSessionClosed    = errors.New("game session is closed")
	ErrInvalidSettings  = models.ErrInvalidSettings
)
