// internal/handlers/socket_server.go
package handlers

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cardtable/uno/internal/room"
)

// SocketServer tracks every live websocket connection so server-wide events
// (the open-room listing and its change notifications) can reach sessions
// that are not seated in any room.
type SocketServer struct {
	Manager *room.Manager

	log *logrus.Logger

	mu    sync.Mutex
	conns map[*room.Connection]struct{}
}

// NewSocketServer builds the connection registry around a room manager.
func NewSocketServer(logger *logrus.Logger, manager *room.Manager) *SocketServer {
	return &SocketServer{
		Manager: manager,
		log:     logger,
		conns:   make(map[*room.Connection]struct{}),
	}
}

func (s *SocketServer) register(c *room.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *SocketServer) unregister(c *room.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

// BroadcastListingUpdate tells every connected session to refresh its
// open-room listing.
func (s *SocketServer) BroadcastListingUpdate() {
	msg := map[string]interface{}{"type": "games_list_update"}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Write(msg)
	}
}

// gamesListPayload snapshots the open rooms for one recipient.
func (s *SocketServer) gamesListPayload() map[string]interface{} {
	return map[string]interface{}{
		"type":  "games_list",
		"games": s.Manager.ListOpen(),
	}
}
