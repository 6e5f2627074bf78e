package models

// Player is a member of a game session's roster.
type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`

	// JoinSeq records join order for host succession; it survives roster re-sorting.
	JoinSeq int `json:"-"`
}

// Answer is a response card played by a player for the current prompt.
type Answer struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Card     Card   `json:"card"`
}
