// internal/game/errors.go
package game

import "errors"

// Sentinel errors returned by the engine. Handlers match these with
// errors.Is and convert them into rejection events for the acting session.
var (
	// ErrNotYourTurn is returned when a player acts out of turn.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrInvalidMove covers illegal cards and out-of-range indices.
	ErrInvalidMove = errors.New("invalid move")

	// ErrInsufficientPlayers is returned by Start with fewer than two seats.
	ErrInsufficientPlayers = errors.New("need at least 2 players to start")

	// ErrGameNotActive is returned for play/draw actions outside the
	// playing state (including after the game has finished).
	ErrGameNotActive = errors.New("game is not in progress")

	// ErrGameStarted is returned when joining or starting a game that has
	// already left the waiting state.
	ErrGameStarted = errors.New("game has already started")

	// ErrGameFull is returned when all six seats are taken.
	ErrGameFull = errors.New("game is full")

	// ErrAlreadyJoined is returned when an identity is already seated.
	ErrAlreadyJoined = errors.New("already in this game")

	// ErrDeckExhausted indicates a draw could not be satisfied even after
	// reshuffling the discard pile. With the reshuffle rule in place this
	// signals an internal invariant violation and is logged server-side
	// rather than shown as a normal game error.
	ErrDeckExhausted = errors.New("deck exhausted")
)
