// internal/hub/hub.go
package hub

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/absurdly/internal/game"
)

// NoGame is the room of connections that have not created or joined a game yet.
const NoGame = "nogame"

// Hub tracks live connections per room and pushes session state to them.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[string]*Connection
	log   logrus.FieldLogger
}

func New(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		rooms: make(map[string]map[string]*Connection),
		log:   logger,
	}
}

// Register places c in roomID. A previous connection of the same player in that
// room is closed and replaced.
func (h *Hub) Register(roomID string, c *Connection) {
	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[string]*Connection)
		h.rooms[roomID] = room
	}
	old := room[c.PlayerID]
	room[c.PlayerID] = c
	h.mu.Unlock()

	if old != nil && old != c {
		h.log.WithFields(logrus.Fields{"game_id": roomID, "player_id": c.PlayerID}).Info("replacing stale connection")
		old.Close()
	}
}

// Remove drops c from whichever room still holds it.
func (h *Hub) Remove(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.rooms {
		h.unregisterLocked(roomID, c)
	}
}

// Evict sends playerID's connection in roomID back to NoGame with a navigate to
// the landing page. It reports whether the player had a connection there.
func (h *Hub) Evict(roomID, playerID string) bool {
	h.mu.Lock()
	c := h.rooms[roomID][playerID]
	if c != nil {
		h.unregisterLocked(roomID, c)
	}
	h.mu.Unlock()
	if c == nil {
		return false
	}

	h.Register(NoGame, c)
	if !c.Write(NewNavigate("/")) {
		h.prune(NoGame, c)
	}
	return true
}

// Move transfers c from one room to another.
func (h *Hub) Move(from, to string, c *Connection) {
	if from == to {
		h.Register(to, c)
		return
	}
	h.mu.Lock()
	h.unregisterLocked(from, c)
	h.mu.Unlock()
	h.Register(to, c)
}

// Connections returns the room's connections ordered by player id.
func (h *Hub) Connections(roomID string) []*Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	out := make([]*Connection, 0, len(room))
	for _, c := range room {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Rooms returns the number of rooms with at least one connection.
func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Send pushes msg to every connection in roomID. Connections that cannot take it
// are pruned; the rest still receive it.
func (h *Hub) Send(roomID string, msg any) {
	for _, c := range h.Connections(roomID) {
		if !c.Write(msg) {
			h.prune(roomID, c)
		}
	}
}

// SendTo pushes msg to one player's connection in roomID, if it has one.
func (h *Hub) SendTo(roomID, playerID string, msg any) bool {
	h.mu.Lock()
	c := h.rooms[roomID][playerID]
	h.mu.Unlock()
	if c == nil {
		return false
	}
	if !c.Write(msg) {
		h.prune(roomID, c)
		return false
	}
	return true
}

// BroadcastState pushes each connection in the session's room its own snapshot.
func (h *Hub) BroadcastState(g *game.GameSession) {
	for _, c := range h.Connections(g.ID) {
		snap := g.Snapshot(c.PlayerID)
		// A connection evicted while the snapshot was taken must not see it.
		if !h.member(g.ID, c) {
			continue
		}
		if !c.Write(NewGameUpdate(snap)) {
			h.prune(g.ID, c)
		}
	}
}

// Watch subscribes to g and keeps its room in sync until the session closes.
// Bursts of events are coalesced into one broadcast.
func (h *Hub) Watch(g *game.GameSession) {
	events, _ := g.Subscribe()
	go func() {
		log := h.log.WithField("game_id", g.ID)
		for ev := range events {
			phaseChanged := ev.Type == game.EventPhaseChanged
			latest := ev
		drain:
			for {
				select {
				case next, ok := <-events:
					if !ok {
						break drain
					}
					latest = next
					if next.Type == game.EventPhaseChanged {
						phaseChanged = true
					}
				default:
					break drain
				}
			}

			h.BroadcastState(g)
			if phaseChanged {
				log.WithField("phase", latest.Phase).Debug("phase changed")
				h.Send(g.ID, NewNavigate(latest.Phase.Route(g.ID)))
			}
		}
		log.Debug("stopped watching game session")
	}()
}

func (h *Hub) member(roomID string, c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[roomID][c.PlayerID] == c
}

func (h *Hub) prune(roomID string, c *Connection) {
	h.mu.Lock()
	h.unregisterLocked(roomID, c)
	h.mu.Unlock()
	c.Close()
	h.log.WithFields(logrus.Fields{"game_id": roomID, "player_id": c.PlayerID}).Warn("pruned unresponsive connection")
}

func (h *Hub) unregisterLocked(roomID string, c *Connection) {
	room, ok := h.rooms[roomID]
	if !ok || room[c.PlayerID] != c {
		return
	}
	delete(room, c.PlayerID)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}
