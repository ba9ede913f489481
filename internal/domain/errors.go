package domain

import "errors"

// Room errors
var (
	ErrRoomFull        = errors.New("room is full")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomClosed      = errors.New("room is closed")
	ErrAlreadyStarted  = errors.New("game has already started")
	ErrNotInRoom       = errors.New("player is not in room")
	ErrNotHost         = errors.New("only the host can perform this action")
	ErrInvalidSettings = errors.New("invalid room settings")
)

// Start errors
var (
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrNotAllReady       = errors.New("not all players are ready")
	ErrRoleCountMismatch = errors.New("role counts do not match the number of players")
)

// Gameplay errors
var (
	ErrWrongPhase      = errors.New("action not allowed in the current phase")
	ErrIneligibleVoter = errors.New("player is not eligible to vote")
	ErrIneligibleActor = errors.New("player is not eligible to perform this action")
	ErrInvalidTarget   = errors.New("invalid target")
	ErrInvalidAction   = errors.New("invalid action")
	ErrEmptyMessage    = errors.New("message is empty")
)
