// internal/room/manager.go
package room

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardtable/uno/internal/game"
)

var (
	// ErrRoomNotFound is returned when a room id does not resolve.
	ErrRoomNotFound = errors.New("game not found")

	// ErrNotCreator is returned when anyone but the original creator tries
	// to start the game.
	ErrNotCreator = errors.New("only the game creator can start")

	// ErrNotInRoom is returned for in-game actions from identities that
	// hold no seat in the room.
	ErrNotInRoom = errors.New("not a player in this game")
)

// Summary is one entry of the open-room listing.
type Summary struct {
	GameID      string   `json:"game_id"`
	Players     []string `json:"players"`
	PlayerCount int      `json:"player_count"`
}

// Manager owns the collection of active rooms and the mapping from session
// identity to joined rooms. The registry has its own lock, independent of
// the per-room exclusion domains, so events targeting different rooms never
// interfere.
type Manager struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]*Room
	sessions map[string]map[uuid.UUID]struct{}

	log *logrus.Logger

	// listingChangedFn is invoked after any room creation, membership
	// change or start, to drive the games_list_update fanout.
	listingChangedFn func()
}

// NewManager builds an empty registry.
func NewManager(logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		rooms:    make(map[uuid.UUID]*Room),
		sessions: make(map[string]map[uuid.UUID]struct{}),
		log:      logger,
	}
}

// SetListingChangedFn registers the callback used to announce listing
// changes to every connected session.
func (m *Manager) SetListingChangedFn(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listingChangedFn = fn
}

func (m *Manager) notifyListingChanged() {
	m.mu.RLock()
	fn := m.listingChangedFn
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// lookup resolves a room id under the registry read lock.
func (m *Manager) lookup(roomID uuid.UUID) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

func (m *Manager) trackSession(username string, roomID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sessions[username]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		m.sessions[username] = set
	}
	set[roomID] = struct{}{}
}

func (m *Manager) untrackSession(username string, roomID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.sessions[username]; ok {
		delete(set, roomID)
		if len(set) == 0 {
			delete(m.sessions, username)
		}
	}
}

func (m *Manager) deleteRoom(roomID uuid.UUID) {
	m.mu.Lock()
	delete(m.rooms, roomID)
	m.mu.Unlock()
	m.log.WithField("room", roomID).Info("room deleted")
}

// CreateRoom allocates a new waiting room, seats the creator and registers
// their connection.
func (m *Manager) CreateRoom(username string, conn *Connection) (*Room, error) {
	r := newRoom(username)
	r.OnEmpty = m.deleteRoom
	if err := r.Game.AddPlayer(username); err != nil {
		return nil, err
	}
	r.Connections[username] = conn

	m.mu.Lock()
	m.rooms[r.ID] = r
	m.mu.Unlock()
	m.trackSession(username, r.ID)

	m.log.WithFields(logrus.Fields{"room": r.ID, "creator": username}).Info("room created")
	m.notifyListingChanged()
	return r, nil
}

// Join seats an identity in an open room. Joining mid-game is not permitted;
// full rooms and duplicate identities are rejected.
func (m *Manager) Join(roomID uuid.UUID, username string, conn *Connection) error {
	r, err := m.lookup(roomID)
	if err != nil {
		return err
	}

	r.Game.Mu.Lock()
	if err := r.Game.AddPlayer(username); err != nil {
		r.Game.Mu.Unlock()
		return err
	}
	r.Connections[username] = conn
	r.broadcast(r.rosterPayload("player_joined", username))
	r.Game.Mu.Unlock()

	m.trackSession(username, roomID)
	m.notifyListingChanged()
	return nil
}

// Leave removes an identity from a room, deleting the room when it empties
// and notifying the remaining members otherwise.
func (m *Manager) Leave(roomID uuid.UUID, username string) error {
	r, err := m.lookup(roomID)
	if err != nil {
		return err
	}
	m.removeFromRoom(r, username)
	return nil
}

// removeFromRoom runs the shared leave/disconnect path: drop the seat under
// the room lock, then delete the room or notify the survivors.
func (m *Manager) removeFromRoom(r *Room, username string) {
	r.Game.Mu.Lock()
	delete(r.Connections, username)
	empty := r.Game.RemovePlayer(username)
	if !empty {
		r.broadcast(r.rosterPayload("player_left", username))
		if r.Game.Status == game.StatusPlaying || r.Game.Status == game.StatusFinished {
			r.broadcastState()
		}
	}
	r.Game.Mu.Unlock()

	m.untrackSession(username, r.ID)
	if empty && r.OnEmpty != nil {
		r.OnEmpty(r.ID)
	}
	m.notifyListingChanged()
}

// Start transitions a waiting room into play. Only the original creator may
// start, and only with at least two seats filled.
func (m *Manager) Start(roomID uuid.UUID, username string) error {
	r, err := m.lookup(roomID)
	if err != nil {
		return err
	}

	r.Game.Mu.Lock()
	if r.Creator != username {
		r.Game.Mu.Unlock()
		return ErrNotCreator
	}
	if err := r.Game.Start(); err != nil {
		r.Game.Mu.Unlock()
		return err
	}
	r.broadcastState()
	r.Game.Mu.Unlock()

	m.log.WithFields(logrus.Fields{"room": roomID, "starter": username}).Info("game started")
	m.notifyListingChanged()
	return nil
}

// PlayCard validates membership and turn, applies the play and rebroadcasts
// the filtered state; a winning play emits game_over instead.
func (m *Manager) PlayCard(roomID uuid.UUID, username string, playerIndex, cardIndex int, chosenColor game.Color) error {
	r, err := m.lookup(roomID)
	if err != nil {
		return err
	}

	r.Game.Mu.Lock()
	defer r.Game.Mu.Unlock()

	seat := r.Game.PlayerIndex(username)
	if seat == -1 {
		return ErrNotInRoom
	}
	if seat != playerIndex {
		return game.ErrInvalidMove
	}

	res, err := r.Game.PlayCard(playerIndex, cardIndex, chosenColor)
	if err != nil {
		if errors.Is(err, game.ErrDeckExhausted) {
			m.log.WithFields(logrus.Fields{"room": roomID, "player": username}).
				Error("deck exhausted during play: reshuffle invariant violated")
		}
		return err
	}

	if res.Won {
		r.broadcast(map[string]interface{}{
			"type":   "game_over",
			"winner": res.Winner,
		})
	} else {
		r.broadcastState()
	}
	return nil
}

// DrawCard validates membership and turn, draws one card into the acting
// hand and rebroadcasts the filtered state.
func (m *Manager) DrawCard(roomID uuid.UUID, username string, playerIndex int) error {
	r, err := m.lookup(roomID)
	if err != nil {
		return err
	}

	r.Game.Mu.Lock()
	defer r.Game.Mu.Unlock()

	seat := r.Game.PlayerIndex(username)
	if seat == -1 {
		return ErrNotInRoom
	}
	if seat != playerIndex {
		return game.ErrInvalidMove
	}

	if _, err := r.Game.DrawCard(playerIndex); err != nil {
		if errors.Is(err, game.ErrDeckExhausted) {
			m.log.WithFields(logrus.Fields{"room": roomID, "player": username}).
				Error("deck exhausted during draw: reshuffle invariant violated")
		}
		return err
	}
	r.broadcastState()
	return nil
}

// ListOpen returns the rooms still waiting for players.
func (m *Manager) ListOpen() []Summary {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	open := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		r.Game.Mu.Lock()
		if r.Game.Status == game.StatusWaiting {
			players := make([]string, len(r.Game.Players))
			for i, p := range r.Game.Players {
				players[i] = p.Username
			}
			open = append(open, Summary{
				GameID:      r.ID.String(),
				Players:     players,
				PlayerCount: len(players),
			})
		}
		r.Game.Mu.Unlock()
	}
	return open
}

// HandleDisconnect removes an identity from every room its session had
// joined, running the same per-room exclusion path as an explicit leave.
func (m *Manager) HandleDisconnect(username string) {
	m.mu.RLock()
	roomIDs := make([]uuid.UUID, 0, len(m.sessions[username]))
	for id := range m.sessions[username] {
		roomIDs = append(roomIDs, id)
	}
	m.mu.RUnlock()

	for _, id := range roomIDs {
		if r, err := m.lookup(id); err == nil {
			m.removeFromRoom(r, username)
		}
	}
	if len(roomIDs) > 0 {
		m.log.WithField("player", username).Info("disconnected, removed from rooms")
	}
}
