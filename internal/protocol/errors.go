package protocol

import (
	"errors"

	"github.com/dom/mafia-server/internal/domain"
)

// Error codes sent in reply frames
const (
	CodeRoomFull          = "ROOM_FULL"
	CodeRoomNotFound      = "ROOM_NOT_FOUND"
	CodeAlreadyStarted    = "ALREADY_STARTED"
	CodeNotEnoughPlayers  = "NOT_ENOUGH_PLAYERS"
	CodeNotAllReady       = "NOT_ALL_READY"
	CodeRoleCountMismatch = "ROLE_COUNT_MISMATCH"
	CodeInvalidSettings   = "INVALID_SETTINGS"
	CodeIneligibleVoter   = "INELIGIBLE_VOTER"
	CodeIneligibleActor   = "INELIGIBLE_ACTOR"
	CodeInvalidTarget     = "INVALID_TARGET"
	CodeInvalidAction     = "INVALID_ACTION"
	CodeNotHost           = "NOT_HOST"
	CodeNotInRoom         = "NOT_IN_ROOM"
	CodeInvalidPhase      = "INVALID_PHASE"
	CodeInvalidPayload    = "INVALID_PAYLOAD"
	CodeUnknownEvent      = "UNKNOWN_EVENT"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrRateLimited    = errors.New("too many requests")
)

// Error is the error body of a reply frame
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

var codes = []struct {
	err  error
	code string
}{
	{domain.ErrRoomFull, CodeRoomFull},
	{domain.ErrRoomNotFound, CodeRoomNotFound},
	{domain.ErrRoomClosed, CodeRoomNotFound},
	{domain.ErrAlreadyStarted, CodeAlreadyStarted},
	{domain.ErrNotEnoughPlayers, CodeNotEnoughPlayers},
	{domain.ErrNotAllReady, CodeNotAllReady},
	{domain.ErrRoleCountMismatch, CodeRoleCountMismatch},
	{domain.ErrInvalidSettings, CodeInvalidSettings},
	{domain.ErrIneligibleVoter, CodeIneligibleVoter},
	{domain.ErrIneligibleActor, CodeIneligibleActor},
	{domain.ErrInvalidTarget, CodeInvalidTarget},
	{domain.ErrInvalidAction, CodeInvalidAction},
	{domain.ErrNotHost, CodeNotHost},
	{domain.ErrNotInRoom, CodeNotInRoom},
	{domain.ErrWrongPhase, CodeInvalidPhase},
	{domain.ErrEmptyMessage, CodeInvalidPayload},
	{ErrInvalidPayload, CodeInvalidPayload},
	{ErrUnknownEvent, CodeUnknownEvent},
	{ErrRateLimited, CodeRateLimited},
}

// CodeFor maps err to its wire code. Unrecognised errors are INTERNAL.
func CodeFor(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorFrom converts err into a wire error. Internal errors are not echoed.
func ErrorFrom(err error) *Error {
	var wire *Error
	if errors.As(err, &wire) {
		return wire
	}
	code := CodeFor(err)
	if code == CodeInternal {
		return &Error{Code: code, Message: "internal error"}
	}
	return &Error{Code: code, Message: err.Error()}
}
