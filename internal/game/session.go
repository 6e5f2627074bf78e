// internal/game/session.go
package game

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/absurdly/internal/models"
)

// DefaultPresentationSeconds is how long answers are shown before voting opens.
const DefaultPresentationSeconds = 5

// WinnersShown is how many top players the results phase exposes.
const WinnersShown = 3

const subscriberBuffer = 64

// CardCatalog supplies the prompt and response cards a session plays with.
type CardCatalog interface {
	ListPromptCards(ctx context.Context) ([]models.Card, error)
	ListResponseCards(ctx context.Context) ([]models.Card, error)
}

// SessionConfig carries the collaborators and defaults of a new GameSession.
// Zero values fall back to sensible defaults.
type SessionConfig struct {
	Catalog             CardCatalog
	Logger              logrus.FieldLogger
	Clock               clockwork.Clock
	Rand                *rand.Rand
	Settings            models.GameSettings
	PresentationSeconds int

	// TickInterval is the length of one countdown second. Only tests shorten it.
	TickInterval time.Duration
}

// GameSession is the state machine of one room. Every exported method that reads
// or mutates state takes mu; countdown callbacks run under the same mu.
type GameSession struct {
	ID string

	mu      sync.Mutex
	log     logrus.FieldLogger
	catalog CardCatalog
	rng     *rand.Rand
	cancel  context.CancelFunc

	presentationSeconds int

	phase    Phase
	round    int
	settings models.GameSettings
	roster   *Roster

	prompts         *CardPool
	responses       *CardPool
	promptsLoaded   bool
	responsesLoaded bool
	hands           map[string][]models.Card
	currentPrompt   *models.Card

	answers     []models.Answer
	votes       map[string]string
	lastWinners []string

	timer    *PhaseTimer
	timeLeft int

	subscribers []chan Event
	closed      bool

	// OnEmpty runs, outside the lock, once the last player has left.
	OnEmpty func(gameID string)
}

// NewGameSession builds a session in the lobby phase.
func NewGameSession(id string, cfg SessionConfig) *GameSession {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Settings == (models.GameSettings{}) {
		cfg.Settings = models.DefaultGameSettings()
	}
	if cfg.PresentationSeconds <= 0 {
		cfg.PresentationSeconds = DefaultPresentationSeconds
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &GameSession{
		ID:                  id,
		log:                 cfg.Logger.WithField("game_id", id),
		catalog:             cfg.Catalog,
		rng:                 cfg.Rand,
		cancel:              cancel,
		presentationSeconds: cfg.PresentationSeconds,
		phase:               PhaseLobby,
		settings:            cfg.Settings,
		roster:              NewRoster(cfg.Rand),
		prompts:             NewCardPool(cfg.Rand),
		responses:           NewCardPool(cfg.Rand),
		hands:               make(map[string][]models.Card),
		votes:               make(map[string]string),
	}
	s.timer = NewPhaseTimer(cfg.Clock, &s.mu, cfg.TickInterval)
	go s.timer.Run(ctx)
	return s
}

// Join adds a player, or returns the existing one when the id is already seated.
// Players joining a running game receive their initial hand.
func (s *GameSession) Join(playerID, nickname string) (models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.Player{}, ErrSessionClosed
	}

	p, added, err := s.roster.Join(playerID, nickname, s.settings.MaxPlayers)
	if err != nil {
		return models.Player{}, err
	}
	if added {
		s.log.WithFields(logrus.Fields{"player_id": playerID, "nickname": p.Nickname}).Info("player joined")
		if s.phase != PhaseLobby && s.phase != PhaseResults {
			s.hands[playerID] = s.responses.Draw(s.settings.CardsPerPlayer)
		}
		s.publishLocked(EventStateChanged)
	}
	return *p, nil
}

// Leave removes a player. The session ends the game when fewer than two players
// remain outside the lobby, and reports itself empty after the last one leaves.
func (s *GameSession) Leave(playerID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if err := s.leaveLocked(playerID); err != nil {
		s.mu.Unlock()
		return err
	}
	empty := s.roster.Len() == 0
	onEmpty := s.OnEmpty
	s.mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty(s.ID)
	}
	return nil
}

// Kick lets the host remove another player.
func (s *GameSession) Kick(hostID, playerID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.roster.HostID() != hostID || hostID == playerID {
		s.mu.Unlock()
		return ErrNotHost
	}
	err := s.leaveLocked(playerID)
	s.mu.Unlock()
	return err
}

func (s *GameSession) leaveLocked(playerID string) error {
	if _, ok := s.roster.Leave(playerID); !ok {
		return ErrUnknownPlayer
	}
	s.log.WithField("player_id", playerID).Info("player left")

	if hand, ok := s.hands[playerID]; ok {
		s.responses.Discard(hand...)
		delete(s.hands, playerID)
	}
	for i, a := range s.answers {
		if a.PlayerID == playerID {
			s.answers = append(s.answers[:i], s.answers[i+1:]...)
			break
		}
	}
	delete(s.votes, playerID)
	for voter, target := range s.votes {
		if target == playerID {
			delete(s.votes, voter)
		}
	}

	switch {
	case s.roster.Len() == 0:
		s.timer.Cancel()
		s.timeLeft = 0
	case s.roster.Len() < models.MinPlayers && s.phase != PhaseLobby:
		if s.phase != PhaseResults {
			s.log.Info("not enough players left, ending game")
			s.endGameLocked()
		}
	case s.phase == PhaseSelection && len(s.answers) == s.roster.Len():
		s.timer.Cancel()
		s.beginPresentationLocked()
	case s.phase == PhaseVoting && len(s.votes) == s.roster.Len():
		s.timer.Cancel()
		s.tallyAndAdvanceLocked()
	}
	s.publishLocked(EventStateChanged)
	return nil
}

// UpdateSettings applies a host's settings patch while in the lobby.
func (s *GameSession) UpdateSettings(playerID string, patch models.SettingsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.roster.HostID() != playerID {
		return ErrNotHost
	}
	if s.phase != PhaseLobby {
		return ErrInvalidPhase
	}
	next, err := s.settings.Apply(patch)
	if err != nil {
		return err
	}
	if next.MaxPlayers < s.roster.Len() {
		return ErrInvalidSettings
	}
	s.settings = next
	s.publishLocked(EventStateChanged)
	return nil
}

// Start deals the opening hands and enters the first selection phase.
func (s *GameSession) Start(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.roster.HostID() != playerID {
		return ErrNotHost
	}
	if s.phase != PhaseLobby {
		return ErrInvalidPhase
	}
	if s.roster.Len() < models.MinPlayers {
		return ErrNotEnoughPlayers
	}

	s.loadCatalogLocked(ctx)

	s.round = 0
	s.answers = nil
	s.votes = make(map[string]string)
	s.lastWinners = nil
	s.returnHandsLocked()
	for _, p := range s.roster.Players() {
		s.hands[p.ID] = s.responses.Draw(s.settings.CardsPerPlayer)
		if len(s.hands[p.ID]) < s.settings.CardsPerPlayer {
			s.log.WithFields(logrus.Fields{
				"player_id": p.ID,
				"dealt":     len(s.hands[p.ID]),
			}).Warn("response cards ran short while dealing")
		}
	}
	s.drawPromptLocked()

	s.log.WithField("players", s.roster.Len()).Info("game started")
	s.beginSelectionLocked()
	return nil
}

// Restart returns the session to the lobby. Scores are kept.
func (s *GameSession) Restart(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.roster.HostID() != playerID {
		return ErrNotHost
	}
	if s.phase == PhaseLobby {
		return ErrInvalidPhase
	}
	s.timer.Cancel()
	s.returnHandsLocked()
	s.round = 0
	s.answers = nil
	s.votes = make(map[string]string)
	s.lastWinners = nil
	s.currentPrompt = nil
	s.timeLeft = 0
	s.phase = PhaseLobby
	s.log.Info("game restarted")
	s.publishLocked(EventPhaseChanged)
	return nil
}

// SubmitAnswer plays a card from the player's hand for the current prompt. The
// last missing answer moves the game on to the presentation phase immediately.
func (s *GameSession) SubmitAnswer(playerID, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.phase != PhaseSelection {
		return ErrInvalidPhase
	}
	if err := s.submitAnswerLocked(playerID, cardID); err != nil {
		return err
	}
	if len(s.answers) == s.roster.Len() {
		s.timer.Cancel()
		s.beginPresentationLocked()
	}
	s.publishLocked(EventStateChanged)
	return nil
}

func (s *GameSession) submitAnswerLocked(playerID, cardID string) error {
	p := s.roster.Get(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if s.hasAnsweredLocked(playerID) {
		return ErrAlreadyAnswered
	}
	hand := s.hands[playerID]
	idx := -1
	for i, c := range hand {
		if c.ID == cardID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrCardNotInHand
	}

	card := hand[idx]
	s.hands[playerID] = append(hand[:idx:idx], hand[idx+1:]...)
	s.responses.Discard(card)
	s.answers = append(s.answers, models.Answer{PlayerID: playerID, Nickname: p.Nickname, Card: card})
	return nil
}

// SubmitVote records or replaces the voter's choice. Once every player has voted,
// the round is tallied at once.
func (s *GameSession) SubmitVote(voterID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.phase != PhaseVoting {
		return ErrInvalidPhase
	}
	if s.roster.Get(voterID) == nil || s.roster.Get(targetID) == nil {
		return ErrUnknownPlayer
	}
	s.votes[voterID] = targetID
	if len(s.votes) == s.roster.Len() {
		s.timer.Cancel()
		s.tallyAndAdvanceLocked()
	}
	s.publishLocked(EventStateChanged)
	return nil
}

// Notify publishes a state-changed event without mutating anything.
func (s *GameSession) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(EventStateChanged)
}

// Subscribe returns a channel of session events and a func that detaches it.
// Slow subscribers lose events rather than stalling the session.
func (s *GameSession) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subscribers = append(s.subscribers, ch)
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub == ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

// Close stops the countdown worker and detaches every subscriber. It must not be
// called while holding the session lock.
func (s *GameSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.timer.Cancel()
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	s.mu.Unlock()

	s.cancel()
	s.timer.Wait()
	s.log.Info("game session closed")
}

func (s *GameSession) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *GameSession) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

func (s *GameSession) HostID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.HostID()
}

// Seated reports whether playerID is on the roster.
func (s *GameSession) Seated(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Get(playerID) != nil
}

func (s *GameSession) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Len()
}

// --- transitions; all assume the lock is held ---

func (s *GameSession) beginSelectionLocked() {
	s.phase = PhaseSelection
	s.timeLeft = s.settings.SelectionSeconds
	s.timer.Start(s.settings.SelectionSeconds, s.tickLocked, s.selectionExpiredLocked)
	s.publishLocked(EventPhaseChanged)
}

// selectionExpiredLocked plays a random card for everyone who has not answered.
func (s *GameSession) selectionExpiredLocked() {
	if s.phase != PhaseSelection {
		return
	}
	for _, p := range s.roster.Players() {
		hand := s.hands[p.ID]
		if s.hasAnsweredLocked(p.ID) || len(hand) == 0 {
			continue
		}
		card := hand[s.rng.Intn(len(hand))]
		if err := s.submitAnswerLocked(p.ID, card.ID); err != nil {
			s.log.WithError(err).WithField("player_id", p.ID).Warn("auto-submit failed")
			continue
		}
		s.log.WithField("player_id", p.ID).Debug("auto-submitted answer")
	}
	s.beginPresentationLocked()
}

func (s *GameSession) beginPresentationLocked() {
	s.phase = PhasePresentation
	s.timeLeft = s.presentationSeconds
	s.timer.Start(s.presentationSeconds, s.tickLocked, s.beginVotingLocked)
	s.publishLocked(EventPhaseChanged)
}

func (s *GameSession) beginVotingLocked() {
	if s.phase != PhasePresentation {
		return
	}
	s.phase = PhaseVoting
	s.timeLeft = s.settings.VotingSeconds
	s.timer.Start(s.settings.VotingSeconds, s.tickLocked, s.votingExpiredLocked)
	s.publishLocked(EventPhaseChanged)
}

func (s *GameSession) votingExpiredLocked() {
	if s.phase != PhaseVoting {
		return
	}
	s.tallyAndAdvanceLocked()
}

func (s *GameSession) tickLocked(remaining int) {
	s.timeLeft = remaining
	s.publishLocked(EventTick)
}

// tallyAndAdvanceLocked credits the round's winners and moves to the next round.
func (s *GameSession) tallyAndAdvanceLocked() {
	counts, winners := tallyVotes(s.votes)
	for _, id := range winners {
		if p := s.roster.Get(id); p != nil {
			p.Score++
		}
	}
	s.lastWinners = winners

	result := &RoundResult{
		GameID:  s.ID,
		Round:   s.round,
		Prompt:  s.currentPrompt,
		Answers: append([]models.Answer(nil), s.answers...),
		Counts:  counts,
		Winners: winners,
	}
	s.log.WithFields(logrus.Fields{"round": s.round, "winners": winners}).Info("round tallied")
	s.publishEventLocked(Event{Type: EventRoundTallied, Result: result})

	s.nextRoundLocked()
}

func (s *GameSession) nextRoundLocked() {
	s.answers = nil
	s.votes = make(map[string]string)
	s.round++

	for _, p := range s.roster.Players() {
		if len(s.hands[p.ID]) == 0 {
			s.endGameLocked()
			return
		}
	}
	s.drawPromptLocked()
	s.beginSelectionLocked()
}

func (s *GameSession) endGameLocked() {
	s.timer.Cancel()
	s.phase = PhaseResults
	s.timeLeft = 0
	s.roster.SortByScore()
	s.log.WithField("round", s.round).Info("game over")
	s.publishLocked(EventPhaseChanged)
}

// --- helpers; all assume the lock is held ---

func (s *GameSession) loadCatalogLocked(ctx context.Context) {
	if s.catalog == nil {
		return
	}
	if !s.promptsLoaded {
		cards, err := s.catalog.ListPromptCards(ctx)
		if err != nil {
			s.log.WithError(err).Error("failed to load prompt cards")
		} else {
			s.prompts.Load(cards)
			s.promptsLoaded = true
		}
	}
	if !s.responsesLoaded {
		cards, err := s.catalog.ListResponseCards(ctx)
		if err != nil {
			s.log.WithError(err).Error("failed to load response cards")
		} else {
			s.responses.Load(cards)
			s.responsesLoaded = true
		}
	}
}

// drawPromptLocked draws the round's prompt. The prompt goes straight to the
// discard pile so every card stays owned by exactly one pile.
func (s *GameSession) drawPromptLocked() {
	card, ok := s.prompts.DrawOne()
	if !ok {
		s.log.Warn("no prompt cards available")
		s.currentPrompt = nil
		return
	}
	s.prompts.Discard(card)
	s.currentPrompt = &card
}

func (s *GameSession) returnHandsLocked() {
	for id, hand := range s.hands {
		s.responses.Discard(hand...)
		delete(s.hands, id)
	}
}

func (s *GameSession) hasAnsweredLocked(playerID string) bool {
	for _, a := range s.answers {
		if a.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (s *GameSession) publishLocked(t EventType) {
	s.publishEventLocked(Event{Type: t})
}

func (s *GameSession) publishEventLocked(ev Event) {
	ev.GameID = s.ID
	ev.Phase = s.phase
	ev.Round = s.round
	ev.TimeLeft = s.timeLeft
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			s.log.WithField("event", ev.Type).Warn("subscriber channel full, dropping event")
		}
	}
}

// tallyVotes counts votes per target. Every target tied for the highest count wins;
// no votes means no winners. Winners are returned in id order.
func tallyVotes(votes map[string]string) (map[string]int, []string) {
	counts := make(map[string]int)
	for _, target := range votes {
		counts[target]++
	}
	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}
	var winners []string
	if best == 0 {
		return counts, winners
	}
	for id, n := range counts {
		if n == best {
			winners = append(winners, id)
		}
	}
	sort.Strings(winners)
	return counts, winners
}
