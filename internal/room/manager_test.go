// internal/room/manager_test.go
package room

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/uno/internal/game"
)

func testConn(username string) *Connection {
	return &Connection{Username: username, OutChan: make(chan interface{}, 64)}
}

// drain empties a connection's out-channel and returns everything queued.
func drain(c *Connection) []interface{} {
	var msgs []interface{}
	for {
		select {
		case msg := <-c.OutChan:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

// lastEventOfType scans drained messages for the most recent map payload with
// the given type tag.
func lastEventOfType(msgs []interface{}, eventType string) map[string]interface{} {
	var found map[string]interface{}
	for _, msg := range msgs {
		if m, ok := msg.(map[string]interface{}); ok && m["type"] == eventType {
			found = m
		}
	}
	return found
}

// lastGameUpdate scans drained messages for the most recent filtered state
// event.
func lastGameUpdate(msgs []interface{}) (gameUpdateMsg, bool) {
	var found gameUpdateMsg
	var ok bool
	for _, msg := range msgs {
		if u, isUpdate := msg.(gameUpdateMsg); isUpdate {
			found = u
			ok = true
		}
	}
	return found, ok
}

// twoPlayerRoom creates a started room with alice (creator) and bob seated,
// with both connections drained of the setup events.
func twoPlayerRoom(t *testing.T, m *Manager) (*Room, *Connection, *Connection) {
	t.Helper()
	alice, bob := testConn("alice"), testConn("bob")
	r, err := m.CreateRoom("alice", alice)
	require.NoError(t, err)
	require.NoError(t, m.Join(r.ID, "bob", bob))
	require.NoError(t, m.Start(r.ID, "alice"))
	drain(alice)
	drain(bob)
	return r, alice, bob
}

func TestCreateRoomSeatsCreator(t *testing.T) {
	m := NewManager(nil)
	conn := testConn("alice")
	r, err := m.CreateRoom("alice", conn)
	require.NoError(t, err)

	assert.Equal(t, "alice", r.Creator)
	assert.Equal(t, 0, r.Game.PlayerIndex("alice"))

	open := m.ListOpen()
	require.Len(t, open, 1)
	assert.Equal(t, r.ID.String(), open[0].GameID)
	assert.Equal(t, []string{"alice"}, open[0].Players)
	assert.Equal(t, 1, open[0].PlayerCount)
}

func TestJoinUnknownRoom(t *testing.T) {
	m := NewManager(nil)
	err := m.Join(uuid.New(), "bob", testConn("bob"))
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinBroadcastsRoster(t *testing.T) {
	m := NewManager(nil)
	alice := testConn("alice")
	r, err := m.CreateRoom("alice", alice)
	require.NoError(t, err)
	require.NoError(t, m.Join(r.ID, "bob", testConn("bob")))

	joined := lastEventOfType(drain(alice), "player_joined")
	require.NotNil(t, joined)
	assert.Equal(t, "bob", joined["username"])
	assert.Equal(t, []string{"alice", "bob"}, joined["players"])
	assert.Equal(t, 2, joined["player_count"])
}

func TestJoinRejectsDuplicateAndOverflow(t *testing.T) {
	m := NewManager(nil)
	r, err := m.CreateRoom("alice", testConn("alice"))
	require.NoError(t, err)

	assert.ErrorIs(t, m.Join(r.ID, "alice", testConn("alice")), game.ErrAlreadyJoined)

	for _, name := range []string{"bob", "carol", "dave", "erin", "frank"} {
		require.NoError(t, m.Join(r.ID, name, testConn(name)))
	}
	assert.ErrorIs(t, m.Join(r.ID, "grace", testConn("grace")), game.ErrGameFull)
}

func TestJoinRejectedMidGame(t *testing.T) {
	m := NewManager(nil)
	r, _, _ := twoPlayerRoom(t, m)
	assert.ErrorIs(t, m.Join(r.ID, "carol", testConn("carol")), game.ErrGameStarted)
}

func TestStartCreatorOnly(t *testing.T) {
	m := NewManager(nil)
	r, err := m.CreateRoom("alice", testConn("alice"))
	require.NoError(t, err)
	require.NoError(t, m.Join(r.ID, "bob", testConn("bob")))

	assert.ErrorIs(t, m.Start(r.ID, "bob"), ErrNotCreator)
	assert.ErrorIs(t, m.Start(uuid.New(), "alice"), ErrRoomNotFound)
	require.NoError(t, m.Start(r.ID, "alice"))
	assert.ErrorIs(t, m.Start(r.ID, "alice"), game.ErrGameStarted)
}

func TestStartRequiresTwoSeats(t *testing.T) {
	m := NewManager(nil)
	r, err := m.CreateRoom("alice", testConn("alice"))
	require.NoError(t, err)
	assert.ErrorIs(t, m.Start(r.ID, "alice"), game.ErrInsufficientPlayers)
}

func TestStartDeliversFilteredViews(t *testing.T) {
	m := NewManager(nil)
	alice, bob := testConn("alice"), testConn("bob")
	r, err := m.CreateRoom("alice", alice)
	require.NoError(t, err)
	require.NoError(t, m.Join(r.ID, "bob", bob))
	require.NoError(t, m.Start(r.ID, "alice"))

	aliceView, ok := lastGameUpdate(drain(alice))
	require.True(t, ok)
	bobView, ok := lastGameUpdate(drain(bob))
	require.True(t, ok)

	assert.Equal(t, "game_update", aliceView.Type)
	assert.Equal(t, 0, aliceView.YourIndex)
	assert.Equal(t, 1, bobView.YourIndex)
	assert.Len(t, aliceView.YourHand, game.HandSize)
	assert.Len(t, bobView.YourHand, game.HandSize)

	// Each player only sees the other as a card count.
	assert.Equal(t, game.HandSize, aliceView.Players[1].CardCount)
	assert.Equal(t, game.HandSize, bobView.Players[0].CardCount)
	assert.NotNil(t, aliceView.TopCard)
	assert.Equal(t, aliceView.TopCard, bobView.TopCard)
}

func TestListOpenExcludesStartedRooms(t *testing.T) {
	m := NewManager(nil)
	r, _, _ := twoPlayerRoom(t, m)
	assert.Empty(t, m.ListOpen())

	_, err := m.CreateRoom("carol", testConn("carol"))
	require.NoError(t, err)
	open := m.ListOpen()
	require.Len(t, open, 1)
	assert.NotEqual(t, r.ID.String(), open[0].GameID)
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	m := NewManager(nil)
	r, err := m.CreateRoom("alice", testConn("alice"))
	require.NoError(t, err)

	require.NoError(t, m.Leave(r.ID, "alice"))
	assert.Empty(t, m.ListOpen())
	assert.ErrorIs(t, m.Join(r.ID, "bob", testConn("bob")), ErrRoomNotFound)
}

func TestLeaveNotifiesSurvivors(t *testing.T) {
	m := NewManager(nil)
	alice, bob := testConn("alice"), testConn("bob")
	r, err := m.CreateRoom("alice", alice)
	require.NoError(t, err)
	require.NoError(t, m.Join(r.ID, "bob", bob))
	drain(bob)

	require.NoError(t, m.Leave(r.ID, "alice"))
	left := lastEventOfType(drain(bob), "player_left")
	require.NotNil(t, left)
	assert.Equal(t, "alice", left["username"])
	assert.Equal(t, []string{"bob"}, left["players"])
}

func TestPlayCardRequiresSeat(t *testing.T) {
	m := NewManager(nil)
	r, _, _ := twoPlayerRoom(t, m)

	assert.ErrorIs(t, m.PlayCard(r.ID, "mallory", 0, 0, ""), ErrNotInRoom)
	assert.ErrorIs(t, m.PlayCard(r.ID, "bob", 0, 0, ""), game.ErrInvalidMove,
		"claimed seat must match the session identity")
	assert.ErrorIs(t, m.DrawCard(r.ID, "mallory", 0), ErrNotInRoom)
	assert.ErrorIs(t, m.DrawCard(r.ID, "alice", 1), game.ErrInvalidMove)
}

func TestTwoPlayerRound(t *testing.T) {
	m := NewManager(nil)
	r, alice, bob := twoPlayerRoom(t, m)

	// Hand alice a guaranteed-legal card.
	r.Game.Players[0].Hand[0] = game.Card{Color: game.ColorWild, Value: game.ValueWild}

	require.NoError(t, m.PlayCard(r.ID, "alice", 0, 0, game.ColorBlue))
	assert.Equal(t, 1, r.Game.CurrentPlayerIndex)

	bobView, ok := lastGameUpdate(drain(bob))
	require.True(t, ok)
	assert.Equal(t, 1, bobView.CurrentPlayer)
	require.NotNil(t, bobView.TopCard)
	assert.Equal(t, game.ColorBlue, bobView.TopCard.Color)
	assert.Equal(t, game.HandSize-1, bobView.Players[0].CardCount)

	deckBefore := r.Game.DeckSize()
	require.NoError(t, m.DrawCard(r.ID, "bob", 1))
	assert.Equal(t, 0, r.Game.CurrentPlayerIndex, "turn returns to alice")
	assert.Equal(t, deckBefore-1, r.Game.DeckSize())

	aliceView, ok := lastGameUpdate(drain(alice))
	require.True(t, ok)
	assert.Equal(t, 0, aliceView.CurrentPlayer)
	assert.Equal(t, game.HandSize+1, aliceView.Players[1].CardCount)
}

func TestWinningPlayEmitsGameOver(t *testing.T) {
	m := NewManager(nil)
	r, alice, bob := twoPlayerRoom(t, m)

	r.Game.Players[0].Hand = []game.Card{{Color: game.ColorWild, Value: game.ValueWild}}
	require.NoError(t, m.PlayCard(r.ID, "alice", 0, 0, ""))

	for _, conn := range []*Connection{alice, bob} {
		over := lastEventOfType(drain(conn), "game_over")
		require.NotNil(t, over, "%s should receive game_over", conn.Username)
		assert.Equal(t, "alice", over["winner"])
	}
	assert.Equal(t, game.StatusFinished, r.Game.Status)
	assert.ErrorIs(t, m.DrawCard(r.ID, "bob", 1), game.ErrGameNotActive)
	assert.ErrorIs(t, m.PlayCard(r.ID, "bob", 1, 0, ""), game.ErrGameNotActive)
}

func TestConcurrentActionsExactlyOneSucceeds(t *testing.T) {
	m := NewManager(nil)
	r, alice, bob := twoPlayerRoom(t, m)

	r.Game.Players[0].Hand = []game.Card{{Color: game.ColorWild, Value: game.ValueWild}}

	var successes int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				err = m.PlayCard(r.ID, "alice", 0, 0, "")
			} else {
				err = m.DrawCard(r.ID, "bob", 1)
			}
			if err == nil {
				atomic.AddInt64(&successes, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), successes, "only the winning play may be applied")
	assert.Equal(t, game.StatusFinished, r.Game.Status)
	assert.Empty(t, r.Game.Players[0].Hand)

	for _, conn := range []*Connection{alice, bob} {
		msgs := drain(conn)
		overs := 0
		for _, msg := range msgs {
			if e, ok := msg.(map[string]interface{}); ok && e["type"] == "game_over" {
				overs++
			}
		}
		assert.Equal(t, 1, overs, "%s should see exactly one game_over", conn.Username)
	}
}

func TestHandleDisconnectLeavesJoinedRooms(t *testing.T) {
	m := NewManager(nil)
	alice, bob := testConn("alice"), testConn("bob")
	r, err := m.CreateRoom("alice", alice)
	require.NoError(t, err)
	require.NoError(t, m.Join(r.ID, "bob", bob))
	drain(bob)

	m.HandleDisconnect("alice")
	left := lastEventOfType(drain(bob), "player_left")
	require.NotNil(t, left)
	assert.Equal(t, "alice", left["username"])

	open := m.ListOpen()
	require.Len(t, open, 1)
	assert.Equal(t, []string{"bob"}, open[0].Players)

	m.HandleDisconnect("bob")
	assert.Empty(t, m.ListOpen())

	// A session with no joined rooms is a no-op.
	m.HandleDisconnect("nobody")
}

func TestListingChangedCallback(t *testing.T) {
	m := NewManager(nil)
	var calls int64
	m.SetListingChangedFn(func() { atomic.AddInt64(&calls, 1) })

	r, err := m.CreateRoom("alice", testConn("alice"))
	require.NoError(t, err)
	require.NoError(t, m.Join(r.ID, "bob", testConn("bob")))
	require.NoError(t, m.Start(r.ID, "alice"))
	require.NoError(t, m.Leave(r.ID, "bob"))

	assert.Equal(t, int64(4), atomic.LoadInt64(&calls))
}

func TestConnectionWriteNeverBlocks(t *testing.T) {
	conn := &Connection{Username: "alice", OutChan: make(chan interface{}, 1)}
	conn.Write("first")
	conn.Write("second") // dropped, channel full
	assert.Equal(t, []interface{}{"first"}, drain(conn))
}
