// internal/game/deck.go
package game

import (
	"math/rand"
	"time"
)

// DeckSize is the canonical Uno deck size: per color one 0, two each of 1-9,
// skip, reverse and draw2 (25 x 4 = 100), plus four wild and four wild_draw4.
const DeckSize = 108

// Deck owns the draw pile and the discard pile for one game. Cards only ever
// move between the two piles and player hands; nothing is created or
// destroyed after construction, so deck + discard + hands stays at DeckSize.
type Deck struct {
	cards   []Card // draw pile, consumed from the end
	discard []Card // last element is the top card
	rng     *rand.Rand
}

// NewDeck builds the canonical 108-card multiset and shuffles it.
func NewDeck() *Deck {
	d := &Deck{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	d.cards = make([]Card, 0, DeckSize)
	for _, color := range Colors {
		d.cards = append(d.cards, Card{Color: color, Value: "0"})
		for _, v := range digitValues[1:] {
			d.cards = append(d.cards, Card{Color: color, Value: v}, Card{Color: color, Value: v})
		}
		for _, v := range actionValues {
			d.cards = append(d.cards, Card{Color: color, Value: v}, Card{Color: color, Value: v})
		}
	}
	for i := 0; i < 4; i++ {
		d.cards = append(d.cards,
			Card{Color: ColorWild, Value: ValueWild},
			Card{Color: ColorWild, Value: ValueWildDraw4},
		)
	}
	d.shuffle()
	return d
}

func (d *Deck) shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Size returns the number of cards left in the draw pile.
func (d *Deck) Size() int { return len(d.cards) }

// DiscardSize returns the number of cards in the discard pile.
func (d *Deck) DiscardSize() int { return len(d.discard) }

// Total returns the number of cards held by both piles.
func (d *Deck) Total() int { return len(d.cards) + len(d.discard) }

// Top returns the top discard card, if any.
func (d *Deck) Top() (Card, bool) {
	if len(d.discard) == 0 {
		return Card{}, false
	}
	return d.discard[len(d.discard)-1], true
}

// Discard places a played card on top of the discard pile.
func (d *Deck) Discard(c Card) {
	d.discard = append(d.discard, c)
}

// recoverable is the number of cards a draw can still reach: the draw pile
// plus every discard card except the top one.
func (d *Deck) recoverable() int {
	n := len(d.cards)
	if len(d.discard) > 1 {
		n += len(d.discard) - 1
	}
	return n
}

// Draw removes and returns n cards from the draw pile, reshuffling the
// discard pile (minus its top card) back in whenever the pile runs dry.
// It fails with ErrDeckExhausted, without moving any cards, if fewer than n
// cards are recoverable.
func (d *Deck) Draw(n int) ([]Card, error) {
	if d.recoverable() < n {
		return nil, ErrDeckExhausted
	}
	drawn := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		if len(d.cards) == 0 {
			d.reshuffleFromDiscard()
		}
		last := len(d.cards) - 1
		drawn = append(drawn, d.cards[last])
		d.cards = d.cards[:last]
	}
	return drawn, nil
}

// reshuffleFromDiscard moves every discard card except the current top into
// the draw pile and shuffles. The discard pile keeps only the former top.
func (d *Deck) reshuffleFromDiscard() {
	if len(d.discard) < 2 {
		return
	}
	top := d.discard[len(d.discard)-1]
	d.cards = append(d.cards, d.discard[:len(d.discard)-1]...)
	d.discard = append(d.discard[:0], top)
	d.shuffle()
}

// FlipStartingCard reveals the opening discard card, which must not be wild.
// Drawn wilds are returned to the draw pile and it is reshuffled before
// trying again, so no card is ever lost.
func (d *Deck) FlipStartingCard() (Card, error) {
	colored := false
	for _, c := range d.cards {
		if !c.IsWild() {
			colored = true
			break
		}
	}
	if !colored {
		return Card{}, ErrDeckExhausted
	}
	for {
		cards, err := d.Draw(1)
		if err != nil {
			return Card{}, err
		}
		c := cards[0]
		if !c.IsWild() {
			d.Discard(c)
			return c, nil
		}
		d.cards = append(d.cards, c)
		d.shuffle()
	}
}
