// internal/room/room.go
package room

import (
	"log"

	"github.com/google/uuid"

	"github.com/cardtable/uno/internal/game"
)

// Connection is a single player's live presence in a room. Outbound events
// are queued on OutChan and drained by the websocket write pump.
type Connection struct {
	Username string
	OutChan  chan interface{}
	Cancel   func()
}

// Write pushes a message onto the connection's out-channel without blocking.
// A full or closed channel drops the message; the write pump going away is
// handled by the disconnect path.
func (c *Connection) Write(msg interface{}) {
	select {
	case c.OutChan <- msg:
	default:
		log.Printf("room: out-channel for %s full or closed, dropping message", c.Username)
	}
}

// Room is an isolated game instance: one engine, the creator's identity, and
// the live connections of every seated player.
//
// The engine mutex is the room's single mutual-exclusion domain. Every
// mutating operation (join, leave, start, play, draw, disconnect) runs its
// whole validate-mutate-broadcast cycle under Game.Mu.
type Room struct {
	ID      uuid.UUID
	Creator string
	Game    *game.UnoGame

	// Connections maps identity to the live connection. Guarded by Game.Mu.
	Connections map[string]*Connection

	// OnEmpty is invoked (outside the room lock) after the last player
	// leaves, so the registry can delete the room.
	OnEmpty func(roomID uuid.UUID)
}

func newRoom(creator string) *Room {
	return &Room{
		ID:          uuid.New(),
		Creator:     creator,
		Game:        game.NewUnoGame(),
		Connections: make(map[string]*Connection),
	}
}

// broadcast sends msg to every connected player. Callers hold Game.Mu;
// Connection.Write never blocks, so this is safe under the lock.
func (r *Room) broadcast(msg interface{}) {
	for _, conn := range r.Connections {
		conn.Write(msg)
	}
}

// rosterPayload builds the membership-change payload shared by the
// player_joined and player_left events.
func (r *Room) rosterPayload(eventType, username string) map[string]interface{} {
	players := make([]string, len(r.Game.Players))
	for i, p := range r.Game.Players {
		players[i] = p.Username
	}
	return map[string]interface{}{
		"type":         eventType,
		"username":     username,
		"players":      players,
		"player_count": len(r.Game.Players),
	}
}

// gameUpdateMsg is the per-player filtered state event. The embedded view
// flattens into the JSON payload next to the type tag.
type gameUpdateMsg struct {
	Type string `json:"type"`
	game.View
}

// broadcastState recomputes the filtered view for every seated player and
// delivers each player their own. Callers hold Game.Mu.
func (r *Room) broadcastState() {
	for seat, p := range r.Game.Players {
		conn, ok := r.Connections[p.Username]
		if !ok {
			continue
		}
		conn.Write(gameUpdateMsg{Type: "game_update", View: r.Game.ViewFor(seat)})
	}
}
