// internal/game/view.go
package game

// PlayerSummary is the public face of one seat: identity and hand size only.
// Other players never see hand contents.
type PlayerSummary struct {
	Username  string `json:"username"`
	CardCount int    `json:"card_count"`
}

// View is the filtered game state delivered to a single recipient: the
// shared fields every player sees, plus that recipient's own seat index and
// full hand.
type View struct {
	CurrentPlayer int             `json:"current_player"`
	Direction     int             `json:"direction"`
	TopCard       *Card           `json:"top_card"`
	Status        Status          `json:"status"`
	PlayerCount   int             `json:"player_count"`
	CardsInDeck   int             `json:"cards_in_deck"`
	Players       []PlayerSummary `json:"players"`

	YourIndex int    `json:"your_index"`
	YourHand  []Card `json:"your_hand"`
}

// ViewFor builds the filtered view for one seat. The recipient's hand is
// copied so the snapshot stays stable once the engine mutates again.
func (g *UnoGame) ViewFor(seat int) View {
	v := View{
		CurrentPlayer: g.CurrentPlayerIndex,
		Direction:     g.Direction,
		Status:        g.Status,
		PlayerCount:   len(g.Players),
		CardsInDeck:   g.deck.Size(),
		YourIndex:     seat,
	}
	if top, ok := g.deck.Top(); ok {
		topCopy := top
		v.TopCard = &topCopy
	}
	v.Players = make([]PlayerSummary, len(g.Players))
	for i, p := range g.Players {
		v.Players[i] = PlayerSummary{Username: p.Username, CardCount: len(p.Hand)}
	}
	if seat >= 0 && seat < len(g.Players) {
		v.YourHand = make([]Card, len(g.Players[seat].Hand))
		copy(v.YourHand, g.Players[seat].Hand)
	}
	return v
}

// Views builds one filtered view per seat, in seat order.
func (g *UnoGame) Views() []View {
	views := make([]View, len(g.Players))
	for i := range g.Players {
		views[i] = g.ViewFor(i)
	}
	return views
}
