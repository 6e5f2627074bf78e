// internal/game/snapshot.go
package game

import "github.com/jason-s-yu/absurdly/internal/models"

// GameSnapshot is the view of a session from one player's seat.
// Fields that player is not allowed to see are left empty.
type GameSnapshot struct {
	GameID        string              `json:"gameId"`
	PlayerID      string              `json:"playerId"`
	IsHost        bool                `json:"isHost"`
	Players       []models.Player     `json:"players"`
	BlackCard     *models.Card        `json:"blackCard"`
	CurrentRound  int                 `json:"currentRound"`
	GamePhase     Phase               `json:"gamePhase"`
	Settings      models.GameSettings `json:"settings"`
	TimeLeft      int                 `json:"timeLeft"`
	PlayerAnswers []models.Answer     `json:"playerAnswers"`
	AnswersCount  int                 `json:"answersCount"`
	WhiteCards    []models.Card       `json:"whiteCards"`
	VotedPlayerID *string             `json:"votedPlayerId"`
	Winners       []models.Player     `json:"winners"`
	RoundWinners  []string            `json:"roundWinners"`
}

// Snapshot projects the session for playerID.
//
// Answers are revealed only once selection is over, so nobody learns who has
// already answered. A hand is shown only to its owner and only while selecting.
// During voting a player sees their own vote and nobody else's.
func (s *GameSession) Snapshot(playerID string) GameSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := GameSnapshot{
		GameID:        s.ID,
		PlayerID:      playerID,
		IsHost:        playerID != "" && s.roster.HostID() == playerID,
		Players:       make([]models.Player, 0, s.roster.Len()),
		CurrentRound:  s.round,
		GamePhase:     s.phase,
		Settings:      s.settings,
		TimeLeft:      s.timeLeft,
		PlayerAnswers: []models.Answer{},
		WhiteCards:    []models.Card{},
		Winners:       []models.Player{},
		RoundWinners:  append([]string{}, s.lastWinners...),
	}
	for _, p := range s.roster.Players() {
		snap.Players = append(snap.Players, *p)
	}
	if s.currentPrompt != nil {
		prompt := *s.currentPrompt
		snap.BlackCard = &prompt
	}

	switch s.phase {
	case PhaseSelection:
		snap.AnswersCount = len(s.answers)
		snap.WhiteCards = append(snap.WhiteCards, s.hands[playerID]...)
	case PhasePresentation:
		snap.PlayerAnswers = append(snap.PlayerAnswers, s.answers...)
	case PhaseVoting:
		snap.PlayerAnswers = append(snap.PlayerAnswers, s.answers...)
		if target, ok := s.votes[playerID]; ok {
			snap.VotedPlayerID = &target
		}
	case PhaseResults:
		snap.PlayerAnswers = append(snap.PlayerAnswers, s.answers...)
		for _, p := range s.roster.Top(WinnersShown) {
			snap.Winners = append(snap.Winners, *p)
		}
	}
	return snap
}
