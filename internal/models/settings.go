// internal/models/settings.go
package models

import (
	"errors"
	"fmt"
)

// Bounds for GameSettings fields.
const (
	MinPlayers        = 2
	MaxPlayersLimit   = 20
	MaxCardsPerPlayer = 20
	MaxPhaseSeconds   = 600
)

// ErrInvalidSettings is returned when a settings patch fails range validation.
var ErrInvalidSettings = errors.New("invalid settings")

// GameSettings holds the host-adjustable configuration of a game session.
type GameSettings struct {
	CardsPerPlayer   int `json:"cardsPerPlayer" yaml:"cards_per_player"`
	SelectionSeconds int `json:"selectionTime" yaml:"selection_time"`
	VotingSeconds    int `json:"votingTime" yaml:"voting_time"`
	MaxPlayers       int `json:"maxPlayers" yaml:"max_players"`
}

// DefaultGameSettings returns the settings a new session starts with.
func DefaultGameSettings() GameSettings {
	return GameSettings{
		CardsPerPlayer:   5,
		SelectionSeconds: 15,
		VotingSeconds:    60,
		MaxPlayers:       10,
	}
}

// SettingsPatch is a partial update of GameSettings. Nil fields are left unchanged.
type SettingsPatch struct {
	CardsPerPlayer   *int `json:"cardsPerPlayer,omitempty"`
	SelectionSeconds *int `json:"selectionTime,omitempty"`
	VotingSeconds    *int `json:"votingTime,omitempty"`
	MaxPlayers       *int `json:"maxPlayers,omitempty"`
}

// Validate checks every field against its allowed range.
func (s GameSettings) Validate() error {
	if s.CardsPerPlayer < 1 || s.CardsPerPlayer > MaxCardsPerPlayer {
		return fmt.Errorf("%w: cardsPerPlayer must be between 1 and %d", ErrInvalidSettings, MaxCardsPerPlayer)
	}
	if s.SelectionSeconds < 1 || s.SelectionSeconds > MaxPhaseSeconds {
		return fmt.Errorf("%w: selectionTime must be between 1 and %d", ErrInvalidSettings, MaxPhaseSeconds)
	}
	if s.VotingSeconds < 1 || s.VotingSeconds > MaxPhaseSeconds {
		return fmt.Errorf("%w: votingTime must be between 1 and %d", ErrInvalidSettings, MaxPhaseSeconds)
	}
	if s.MaxPlayers < MinPlayers || s.MaxPlayers > MaxPlayersLimit {
		return fmt.Errorf("%w: maxPlayers must be between %d and %d", ErrInvalidSettings, MinPlayers, MaxPlayersLimit)
	}
	return nil
}

// Apply returns a copy of s with the patch applied and validated.
// The receiver is never modified, so a failed patch leaves the settings untouched.
func (s GameSettings) Apply(p SettingsPatch) (GameSettings, error) {
	next := s
	if p.CardsPerPlayer != nil {
		next.CardsPerPlayer = *p.CardsPerPlayer
	}
	if p.SelectionSeconds != nil {
		next.SelectionSeconds = *p.SelectionSeconds
	}
	if p.VotingSeconds != nil {
		next.VotingSeconds = *p.VotingSeconds
	}
	if p.MaxPlayers != nil {
		next.MaxPlayers = *p.MaxPlayers
	}
	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}
