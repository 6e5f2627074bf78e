// internal/game/card_pool.go
package game

import (
	"math/rand"
	"time"

	"github.com/jason-s-yu/absurdly/internal/models"
)

// CardPool is the draw pile and discard pile of a single card category.
// It is not safe for concurrent use; the owning GameSession serializes access.
type CardPool struct {
	draw    []models.Card
	discard []models.Card
	rng     *rand.Rand

	// reshuffles counts how many times the discard pile was recycled.
	reshuffles int
}

// NewCardPool returns an empty pool. A nil rng gets a time-seeded source.
func NewCardPool(rng *rand.Rand) *CardPool {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CardPool{rng: rng}
}

// Load replaces the pool contents with a shuffled copy of cards.
func (p *CardPool) Load(cards []models.Card) {
	p.draw = append([]models.Card(nil), cards...)
	p.discard = nil
	p.shuffle(p.draw)
}

// Loaded reports whether the pool holds any card at all.
func (p *CardPool) Loaded() bool {
	return len(p.draw)+len(p.discard) > 0
}

// Draw removes up to n cards from the top of the draw pile. If the draw pile runs
// out, the discard pile is shuffled back in once and drawing continues. Fewer than
// n cards are returned when both piles together hold fewer than n.
func (p *CardPool) Draw(n int) []models.Card {
	if n <= 0 {
		return nil
	}
	if len(p.draw) < n && len(p.discard) > 0 {
		p.reshuffle()
	}
	if n > len(p.draw) {
		n = len(p.draw)
	}
	out := make([]models.Card, n)
	copy(out, p.draw[:n])
	p.draw = p.draw[n:]
	return out
}

// DrawOne draws a single card, reporting false when none is left.
func (p *CardPool) DrawOne() (models.Card, bool) {
	cards := p.Draw(1)
	if len(cards) == 0 {
		return models.Card{}, false
	}
	return cards[0], true
}

// Discard moves cards out of active play until the next reshuffle.
func (p *CardPool) Discard(cards ...models.Card) {
	p.discard = append(p.discard, cards...)
}

// Counts returns the sizes of the draw and discard piles.
func (p *CardPool) Counts() (draw, discard int) {
	return len(p.draw), len(p.discard)
}

// reshuffle puts the discard pile under the remaining draw pile order and shuffles
// only the recycled cards, so cards already on the draw pile keep their position.
func (p *CardPool) reshuffle() {
	recycled := p.discard
	p.discard = nil
	p.shuffle(recycled)
	p.draw = append(p.draw, recycled...)
	p.reshuffles++
}

func (p *CardPool) shuffle(cards []models.Card) {
	p.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
