// internal/game/events.go
package game

import "github.com/jason-s-yu/absurdly/internal/models"

// Phase is a stage of the session state machine.
type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhaseSelection    Phase = "selection"
	PhasePresentation Phase = "presentation"
	PhaseVoting       Phase = "voting"
	PhaseResults      Phase = "results"
)

// Route is the client route matching the phase.
func (p Phase) Route(gameID string) string {
	switch p {
	case PhaseSelection:
		return "/game/" + gameID
	case PhasePresentation:
		return "/presentation/" + gameID
	case PhaseVoting:
		return "/voting/" + gameID
	case PhaseResults:
		return "/results/" + gameID
	default:
		return "/lobby/" + gameID
	}
}

// EventType tags what a session Event reports.
type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventPhaseChanged EventType = "phase_changed"
	EventTick         EventType = "tick"
	EventRoundTallied EventType = "round_tallied"
)

// Event is published to subscribers after the session state has changed.
// Subscribers read the state itself through Snapshot.
type Event struct {
	Type     EventType
	GameID   string
	Phase    Phase
	Round    int
	TimeLeft int

	// Result is set on EventRoundTallied.
	Result *RoundResult
}

// RoundResult summarizes one tallied round.
type RoundResult struct {
	GameID  string          `json:"game_id"`
	Round   int             `json:"round"`
	Prompt  *models.Card    `json:"prompt,omitempty"`
	Answers []models.Answer `json:"answers"`
	Counts  map[string]int  `json:"counts"`
	Winners []string        `json:"winners"`
}
