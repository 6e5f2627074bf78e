// internal/game/roster.go
package game

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/jason-s-yu/absurdly/internal/models"
)

// Roster is the ordered membership of a game session.
// It is not safe for concurrent use; the owning GameSession serializes access.
type Roster struct {
	players []*models.Player
	hostID  string
	nextSeq int
	rng     *rand.Rand
}

// NewRoster returns an empty roster. The first player to join becomes host.
func NewRoster(rng *rand.Rand) *Roster {
	return &Roster{rng: rng}
}

// Join adds a player. Joining again with a known id returns the existing player untouched.
// A nickname already in use gets a random numeric suffix.
func (r *Roster) Join(playerID, nickname string, maxPlayers int) (*models.Player, bool, error) {
	if p := r.Get(playerID); p != nil {
		return p, false, nil
	}
	if len(r.players) >= maxPlayers {
		return nil, false, ErrRoomFull
	}
	name := nickname
	for r.nicknameTaken(name) {
		name = fmt.Sprintf("%s_%d", nickname, r.rng.Intn(999)+1)
	}
	p := &models.Player{ID: playerID, Nickname: name, JoinSeq: r.nextSeq}
	r.nextSeq++
	r.players = append(r.players, p)
	if r.hostID == "" {
		r.hostID = playerID
	}
	return p, true, nil
}

// Leave removes a player and, if they were host, promotes the earliest joiner left.
func (r *Roster) Leave(playerID string) (*models.Player, bool) {
	idx := r.indexOf(playerID)
	if idx < 0 {
		return nil, false
	}
	removed := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	if r.hostID == playerID {
		r.hostID = ""
		var next *models.Player
		for _, p := range r.players {
			if next == nil || p.JoinSeq < next.JoinSeq {
				next = p
			}
		}
		if next != nil {
			r.hostID = next.ID
		}
	}
	return removed, true
}

func (r *Roster) Get(playerID string) *models.Player {
	if idx := r.indexOf(playerID); idx >= 0 {
		return r.players[idx]
	}
	return nil
}

func (r *Roster) Len() int       { return len(r.players) }
func (r *Roster) HostID() string { return r.hostID }

// Players returns the roster in its current order. The slice is a copy; the
// players are shared.
func (r *Roster) Players() []*models.Player {
	return append([]*models.Player(nil), r.players...)
}

// SortByScore orders players by score descending, keeping the current relative
// order of tied players.
func (r *Roster) SortByScore() {
	sort.SliceStable(r.players, func(i, j int) bool {
		return r.players[i].Score > r.players[j].Score
	})
}

// Top returns up to n players from the front of the roster.
func (r *Roster) Top(n int) []*models.Player {
	if n > len(r.players) {
		n = len(r.players)
	}
	return append([]*models.Player(nil), r.players[:n]...)
}

func (r *Roster) indexOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Roster) nicknameTaken(name string) bool {
	for _, p := range r.players {
		if p.Nickname == name {
			return true
		}
	}
	return false
}
