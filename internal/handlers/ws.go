// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cardtable/uno/internal/auth"
	"github.com/cardtable/uno/internal/game"
	"github.com/cardtable/uno/internal/room"
)

// clientMessage is the inbound event envelope. player_index and card_index
// use pointers so a missing field is distinguishable from zero.
type clientMessage struct {
	Type        string `json:"type"`
	GameID      string `json:"game_id,omitempty"`
	PlayerIndex *int   `json:"player_index,omitempty"`
	CardIndex   *int   `json:"card_index,omitempty"`
	ChosenColor string `json:"chosen_color,omitempty"`
}

// WSHandler upgrades the connection, authenticates the session cookie and
// runs the event loop. Unauthenticated sockets are refused at accept time;
// the username from the token is the player identity for every room event.
func WSHandler(logger *logrus.Logger, s *SocketServer, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"uno"},
			OriginPatterns: origins,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "uno" {
			c.Close(BadSubprotocolError, "client must speak the uno subprotocol")
			return
		}

		token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
		username, err := auth.Authenticate(token)
		if err != nil {
			logger.Warnf("unauthenticated websocket from %s: %v", r.RemoteAddr, err)
			c.Close(websocket.StatusPolicyViolation, "authentication required")
			return
		}
		logger.WithFields(logrus.Fields{"player": username, "remote": r.RemoteAddr}).Info("WebSocket connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := &room.Connection{
			Username: username,
			OutChan:  make(chan interface{}, 32),
			Cancel:   cancel,
		}
		s.register(conn)

		go writePump(ctx, c, conn, logger)

		// Every fresh connection gets the current listing pushed.
		conn.Write(s.gamesListPayload())

		readLoop(ctx, c, s, conn, logger)

		// Cleanup: the session map drives removal from every joined room,
		// under each room's own exclusion domain.
		s.unregister(conn)
		s.Manager.HandleDisconnect(username)
		logger.WithField("player", username).Info("WebSocket disconnected")
	}
}

// readLoop reads and dispatches events until the connection closes.
func readLoop(ctx context.Context, c *websocket.Conn, s *SocketServer, conn *room.Connection, logger *logrus.Logger) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway &&
				!strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("read error for %s: %v", conn.Username, err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("invalid json from %s: %v", conn.Username, err)
			conn.Write(errorEvent("error", "Invalid JSON format"))
			continue
		}

		dispatch(s, conn, msg, logger)
	}
}

// dispatch routes one inbound event to the room manager and converts
// rejections into error events for the acting session only.
func dispatch(s *SocketServer, conn *room.Connection, msg clientMessage, logger *logrus.Logger) {
	switch msg.Type {
	case "create_game":
		r, err := s.Manager.CreateRoom(conn.Username, conn)
		if err != nil {
			conn.Write(errorEvent("error", errorMessage(err)))
			return
		}
		conn.Write(map[string]interface{}{
			"type":    "game_created",
			"game_id": r.ID.String(),
		})

	case "join_game":
		roomID, err := uuid.Parse(msg.GameID)
		if err != nil {
			conn.Write(errorEvent("join_error", "Game not found"))
			return
		}
		if err := s.Manager.Join(roomID, conn.Username, conn); err != nil {
			conn.Write(errorEvent("join_error", errorMessage(err)))
			return
		}
		conn.Write(map[string]interface{}{
			"type":    "join_success",
			"game_id": msg.GameID,
		})

	case "leave_game":
		roomID, err := uuid.Parse(msg.GameID)
		if err != nil {
			return
		}
		// A leave for an unknown room is silently ignored.
		_ = s.Manager.Leave(roomID, conn.Username)

	case "start_game":
		roomID, err := uuid.Parse(msg.GameID)
		if err != nil {
			return
		}
		if err := s.Manager.Start(roomID, conn.Username); err != nil {
			if errors.Is(err, room.ErrNotCreator) {
				return // non-creator start attempts get no reply
			}
			conn.Write(errorEvent("error", errorMessage(err)))
		}

	case "play_card":
		roomID, err := uuid.Parse(msg.GameID)
		if err != nil || msg.PlayerIndex == nil || msg.CardIndex == nil {
			conn.Write(errorEvent("error", "Invalid move"))
			return
		}
		err = s.Manager.PlayCard(roomID, conn.Username, *msg.PlayerIndex, *msg.CardIndex, game.Color(msg.ChosenColor))
		if err != nil {
			conn.Write(errorEvent("error", errorMessage(err)))
		}

	case "draw_card":
		roomID, err := uuid.Parse(msg.GameID)
		if err != nil || msg.PlayerIndex == nil {
			conn.Write(errorEvent("error", "Invalid move"))
			return
		}
		if err := s.Manager.DrawCard(roomID, conn.Username, *msg.PlayerIndex); err != nil {
			conn.Write(errorEvent("error", errorMessage(err)))
		}

	case "get_games":
		conn.Write(s.gamesListPayload())

	default:
		logger.Warnf("unknown event type %q from %s", msg.Type, conn.Username)
		conn.Write(errorEvent("error", "Unknown event type: "+msg.Type))
	}
}

// errorMessage maps sentinel errors onto the client-facing message strings.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "Game not found"
	case errors.Is(err, room.ErrNotInRoom):
		return "Not a player in this game"
	case errors.Is(err, game.ErrAlreadyJoined):
		return "Already in this game"
	case errors.Is(err, game.ErrGameFull):
		return "Game is full"
	case errors.Is(err, game.ErrGameStarted):
		return "Game has already started"
	case errors.Is(err, game.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, game.ErrInvalidMove):
		return "Invalid move"
	case errors.Is(err, game.ErrInsufficientPlayers):
		return "Need at least 2 players to start"
	case errors.Is(err, game.ErrGameNotActive):
		return "Game is not in progress"
	case errors.Is(err, game.ErrDeckExhausted):
		// Internal fault (reshuffle should always cover draws); keep the
		// client message generic.
		return "Internal game error"
	default:
		return "Internal game error"
	}
}

func errorEvent(eventType, message string) map[string]interface{} {
	return map[string]interface{}{
		"type":    eventType,
		"message": message,
	}
}

// writePump drains the connection's out-channel onto the websocket and
// keeps the connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing msg for %s: %v", conn.Username, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed for %s, assuming disconnect: %v", conn.Username, err)
				return
			}
		}
	}
}
