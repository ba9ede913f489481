package protocol

import (
	"encoding/json"
	"time"
)

// Frame is the single envelope exchanged over the websocket.
//
// A request carries ID and Event. Its reply carries Ack set to the request
// ID and either Payload or Error. A push carries Event, Seq and Timestamp
// and no ID or Ack.
type Frame struct {
	ID        uint64          `json:"id,omitempty"`
	Ack       uint64          `json:"ack,omitempty"`
	Event     string          `json:"event,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     *Error          `json:"error,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

func (f *Frame) IsRequest() bool {
	return f.ID != 0 && f.Ack == 0
}

func (f *Frame) IsReply() bool {
	return f.Ack != 0
}

// NewRequest builds a request frame.
func NewRequest(id uint64, event string, payload interface{}) (*Frame, error) {
	raw, err := marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Frame{ID: id, Event: event, Payload: raw}, nil
}

// NewReply builds a successful reply to request id.
func NewReply(id uint64, payload interface{}) (*Frame, error) {
	raw, err := marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Frame{Ack: id, Payload: raw}, nil
}

// NewErrorReply builds a failed reply to request id.
func NewErrorReply(id uint64, err error) *Frame {
	return &Frame{Ack: id, Error: ErrorFrom(err)}
}

// NewPush builds a server push.
func NewPush(event string, seq uint64, payload interface{}) (*Frame, error) {
	raw, err := marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Event:     event,
		Payload:   raw,
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func marshal(payload interface{}) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}
