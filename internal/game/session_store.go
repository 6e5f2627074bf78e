// internal/game/session_store.go
package game

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sessionIDLength = 8

// SessionStore is the in-memory directory of live game sessions. Sessions evict
// themselves once their last player leaves.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*GameSession
	config   SessionConfig
	log      logrus.FieldLogger

	// OnCreate runs, outside the store lock, for every session the store creates.
	OnCreate func(*GameSession)
}

// NewSessionStore returns an empty store. Every session it creates is built from cfg.
func NewSessionStore(cfg SessionConfig) *SessionStore {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &SessionStore{
		sessions: make(map[string]*GameSession),
		config:   cfg,
		log:      cfg.Logger,
	}
}

// Create registers a session under a freshly generated id that no live session uses.
func (s *SessionStore) Create() *GameSession {
	s.mu.Lock()
	id := newSessionID()
	for s.sessions[id] != nil {
		id = newSessionID()
	}
	g := s.newSessionLocked(id)
	s.mu.Unlock()

	s.created(g)
	return g
}

// GetOrCreate returns the session with id, creating it on first reference.
func (s *SessionStore) GetOrCreate(id string) (*GameSession, bool) {
	s.mu.Lock()
	if g, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return g, false
	}
	g := s.newSessionLocked(id)
	s.mu.Unlock()

	s.created(g)
	return g, true
}

func (s *SessionStore) Get(id string) (*GameSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.sessions[id]
	return g, ok
}

// IDs lists live session ids in sorted order.
func (s *SessionStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CloseAll empties the store, closing every session.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*GameSession)
	s.mu.Unlock()

	for _, g := range sessions {
		g.Close()
	}
}

func (s *SessionStore) newSessionLocked(id string) *GameSession {
	g := NewGameSession(id, s.config)
	g.OnEmpty = s.ReleaseIfEmpty
	s.sessions[id] = g
	s.log.WithField("game_id", id).Info("game session created")
	return g
}

// ReleaseIfEmpty removes and closes the session with id if nobody is seated in it.
func (s *SessionStore) ReleaseIfEmpty(id string) {
	s.mu.Lock()
	g, ok := s.sessions[id]
	if ok && g.PlayerCount() == 0 {
		delete(s.sessions, id)
	} else {
		ok = false
	}
	s.mu.Unlock()

	if ok {
		g.Close()
		s.log.WithField("game_id", id).Info("empty game session evicted")
	}
}

func (s *SessionStore) created(g *GameSession) {
	if s.OnCreate != nil {
		s.OnCreate(g)
	}
}

func newSessionID() string {
	return uuid.NewString()[:sessionIDLength]
}
