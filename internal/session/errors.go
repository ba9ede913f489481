package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected    = errors.New("not connected")
	ErrEmitTimeout     = errors.New("timed out waiting for response")
	ErrReconnectFailed = errors.New("reconnect attempts exhausted")
	ErrRemote          = errors.New("server rejected request")
	ErrClosed          = errors.New("client closed")
)

// RemoteError is an error reply sent by the server.
type RemoteError struct {
	Event   string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Event, e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return ErrRemote
}
