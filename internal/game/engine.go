// internal/game/engine.go
package game

import "sync"

// Status is the lifecycle state of one game.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusEmpty    Status = "empty"
)

const (
	// MinPlayers is the smallest roster a game can start with.
	MinPlayers = 2
	// MaxPlayers is the seat cap per room.
	MaxPlayers = 6
	// HandSize is the number of cards dealt to each player.
	HandSize = 7
)

// Player is one seat in a game. Seat order is fixed at start; the hand is
// exclusively owned and mutated by the engine on deal, draw and play.
type Player struct {
	Username string `json:"username"`
	Hand     []Card `json:"hand"`
}

// UnoGame holds the full state of a single game instance in memory: deck and
// discard, seats, the turn pointer, direction and status.
//
// The engine performs no locking of its own. All mutating operations on one
// game must be serialized through Mu; the room layer funnels every action
// for a room through it, so two near-simultaneous moves can never interleave.
type UnoGame struct {
	Mu sync.Mutex

	deck    *Deck
	Players []*Player

	CurrentPlayerIndex int
	Direction          int // +1 clockwise, -1 counter-clockwise
	Status             Status

	// DefaultWildColor is assigned to a played wild card when the player
	// supplies no chosen color. Deliberate policy, not a fallback bug.
	DefaultWildColor Color
}

// NewUnoGame builds an empty game with a freshly shuffled deck.
func NewUnoGame() *UnoGame {
	return &UnoGame{
		deck:             NewDeck(),
		Direction:        1,
		Status:           StatusWaiting,
		DefaultWildColor: ColorRed,
	}
}

// AddPlayer seats a new identity. Joining is only permitted while waiting.
func (g *UnoGame) AddPlayer(username string) error {
	if g.Status != StatusWaiting {
		return ErrGameStarted
	}
	for _, p := range g.Players {
		if p.Username == username {
			return ErrAlreadyJoined
		}
	}
	if len(g.Players) >= MaxPlayers {
		return ErrGameFull
	}
	g.Players = append(g.Players, &Player{Username: username})
	return nil
}

// PlayerIndex returns the seat of an identity, or -1 if not seated.
func (g *UnoGame) PlayerIndex(username string) int {
	for i, p := range g.Players {
		if p.Username == username {
			return i
		}
	}
	return -1
}

// Start deals seven cards per seat round-robin, reveals a non-wild first
// discard card and begins play with seat 0 moving clockwise.
func (g *UnoGame) Start() error {
	if g.Status != StatusWaiting {
		return ErrGameStarted
	}
	if len(g.Players) < MinPlayers {
		return ErrInsufficientPlayers
	}
	for i := 0; i < HandSize; i++ {
		for _, p := range g.Players {
			cards, err := g.deck.Draw(1)
			if err != nil {
				return err
			}
			p.Hand = append(p.Hand, cards[0])
		}
	}
	if _, err := g.deck.FlipStartingCard(); err != nil {
		return err
	}
	g.Status = StatusPlaying
	g.CurrentPlayerIndex = 0
	g.Direction = 1
	return nil
}

// PlayResult reports the outcome of a successful play.
type PlayResult struct {
	Card   Card
	Won    bool
	Winner string
}

// PlayCard validates and applies one play: the card moves from the acting
// hand to the discard pile, wild colors are resolved, special effects apply,
// and the turn advances. An emptied hand finishes the game.
//
// Turn advancement composes in two steps: a skip or draw effect
// advances the pointer one extra step, and every play ends with one
// unconditional advance, so skip and draw cards move the turn two seats net.
func (g *UnoGame) PlayCard(playerIndex, cardIndex int, chosenColor Color) (PlayResult, error) {
	if g.Status != StatusPlaying {
		return PlayResult{}, ErrGameNotActive
	}
	if playerIndex != g.CurrentPlayerIndex {
		return PlayResult{}, ErrNotYourTurn
	}
	player := g.Players[playerIndex]
	if cardIndex < 0 || cardIndex >= len(player.Hand) {
		return PlayResult{}, ErrInvalidMove
	}
	card := player.Hand[cardIndex]
	top, ok := g.deck.Top()
	if !ok || !card.Matches(top) {
		return PlayResult{}, ErrInvalidMove
	}

	player.Hand = append(player.Hand[:cardIndex], player.Hand[cardIndex+1:]...)
	if card.IsWild() {
		if validChosenColor(chosenColor) {
			card.Color = chosenColor
		} else {
			card.Color = g.DefaultWildColor
		}
	}
	g.deck.Discard(card)

	switch card.Value {
	case ValueSkip:
		g.advance()
	case ValueReverse:
		g.Direction = -g.Direction
	case ValueDraw2:
		if err := g.forceDraw(g.nextIndex(), 2); err != nil {
			return PlayResult{}, err
		}
		g.advance()
	case ValueWildDraw4:
		if err := g.forceDraw(g.nextIndex(), 4); err != nil {
			return PlayResult{}, err
		}
		g.advance()
	}
	g.advance()

	res := PlayResult{Card: card}
	if len(player.Hand) == 0 {
		g.Status = StatusFinished
		res.Won = true
		res.Winner = player.Username
	}
	return res, nil
}

// DrawCard draws exactly one card into the acting hand and ends the turn.
// The drawn card is never auto-played, even when legal.
func (g *UnoGame) DrawCard(playerIndex int) (Card, error) {
	if g.Status != StatusPlaying {
		return Card{}, ErrGameNotActive
	}
	if playerIndex != g.CurrentPlayerIndex {
		return Card{}, ErrNotYourTurn
	}
	cards, err := g.deck.Draw(1)
	if err != nil {
		return Card{}, err
	}
	g.Players[playerIndex].Hand = append(g.Players[playerIndex].Hand, cards[0])
	g.advance()
	return cards[0], nil
}

// RemovePlayer drops an identity from the seating order without reordering
// the remaining seats, resets the turn pointer if it falls off the end, and
// downgrades the status when the roster shrinks below the playable minimum.
// It returns true when no players remain.
func (g *UnoGame) RemovePlayer(username string) bool {
	kept := g.Players[:0]
	for _, p := range g.Players {
		if p.Username != username {
			kept = append(kept, p)
		}
	}
	g.Players = kept

	if len(g.Players) == 0 {
		g.Status = StatusEmpty
		return true
	}
	if g.CurrentPlayerIndex >= len(g.Players) {
		g.CurrentPlayerIndex = 0
	}
	if len(g.Players) < MinPlayers && g.Status == StatusPlaying {
		g.Status = StatusFinished
	}
	return false
}

// TopCard returns the current top discard card.
func (g *UnoGame) TopCard() (Card, bool) { return g.deck.Top() }

// DeckSize returns the number of cards remaining in the draw pile.
func (g *UnoGame) DeckSize() int { return g.deck.Size() }

// DiscardSize returns the discard pile size.
func (g *UnoGame) DiscardSize() int { return g.deck.DiscardSize() }

// TotalCards counts every card in the deck, the discard pile and all hands.
// While a game is live this is always DeckSize (108).
func (g *UnoGame) TotalCards() int {
	n := g.deck.Total()
	for _, p := range g.Players {
		n += len(p.Hand)
	}
	return n
}

// nextIndex computes the seat one step from the current player in the
// current direction, wrapping in both directions.
func (g *UnoGame) nextIndex() int {
	n := len(g.Players)
	return ((g.CurrentPlayerIndex+g.Direction)%n + n) % n
}

func (g *UnoGame) advance() {
	g.CurrentPlayerIndex = g.nextIndex()
}

// forceDraw moves n cards from the deck into the given seat's hand.
func (g *UnoGame) forceDraw(playerIndex, n int) error {
	cards, err := g.deck.Draw(n)
	if err != nil {
		return err
	}
	g.Players[playerIndex].Hand = append(g.Players[playerIndex].Hand, cards...)
	return nil
}
