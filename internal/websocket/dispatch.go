package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/protocol"
)

// dispatch runs one request frame against the client's room. The returned
// value becomes the reply payload; nil means an OK reply.
func (c *Client) dispatch(ctx context.Context, frame *protocol.Frame) (interface{}, error) {
	switch frame.Event {
	case protocol.EventRoomCreate:
		var req protocol.CreateRoomRequest
		if len(frame.Payload) > 0 {
			if err := decode(frame.Payload, &req); err != nil {
				return nil, err
			}
		}
		return c.createRoom(ctx, req.Settings)

	case protocol.EventRoomJoin:
		var req protocol.JoinRoomRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		return c.joinRoom(ctx, req.Code)

	case protocol.EventRoomList:
		return protocol.RoomListResponse{Rooms: c.hub.registry.Lobbies(ctx)}, nil

	case protocol.EventRoomLeave:
		if c.room == nil {
			return nil, domain.ErrNotInRoom
		}
		c.leaveRoom(false)
		return nil, nil
	}

	if c.room == nil {
		if !isRoomEvent(frame.Event) {
			return nil, fmt.Errorf("%w: %q", protocol.ErrUnknownEvent, frame.Event)
		}
		return nil, domain.ErrNotInRoom
	}
	room, me := c.room, c.who.ID

	switch frame.Event {
	case protocol.EventRoomSync:
		return room.Snapshot(ctx, me)

	case protocol.EventRoomSettings:
		var req protocol.UpdateSettingsRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		return nil, room.UpdateSettings(ctx, me, req.Settings)

	case protocol.EventPlayerReady:
		var req protocol.ReadyRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		return nil, room.SetReady(ctx, me, req.IsReady)

	case protocol.EventGameStart:
		return nil, room.Start(ctx, me)

	case protocol.EventGameVote:
		var req protocol.VoteRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		return nil, room.Vote(ctx, me, req.TargetID)

	case protocol.EventGameAction:
		var req protocol.ActionRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		return nil, room.Act(ctx, me, req.Action, req.TargetID)

	case protocol.EventGameAdvance:
		return nil, room.Advance(ctx, me)

	case protocol.EventGameReset:
		return nil, room.Reset(ctx, me)

	case protocol.EventChatMessage:
		var req protocol.ChatRequest
		if err := decode(frame.Payload, &req); err != nil {
			return nil, err
		}
		msg, err := room.Chat(ctx, me, req.Content)
		if err != nil {
			return nil, err
		}
		return protocol.ChatMessagePayload{Message: msg}, nil
	}

	return nil, fmt.Errorf("%w: %q", protocol.ErrUnknownEvent, frame.Event)
}

func (c *Client) createRoom(ctx context.Context, settings domain.Settings) (interface{}, error) {
	c.leaveRoom(false)

	room, snap, err := c.hub.registry.Create(ctx, c.who, settings)
	if err != nil {
		return nil, err
	}
	c.attach(room, room.Subscribe(c.who.ID))
	return protocol.CreateRoomResponse{RoomID: room.ID(), Code: room.Code(), Room: snap}, nil
}

func (c *Client) joinRoom(ctx context.Context, code string) (interface{}, error) {
	room, ok := c.hub.registry.ByCode(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if c.room == room {
		return room.Snapshot(ctx, c.who.ID)
	}

	// Subscribe first so nothing published after the join is missed.
	sub := room.Subscribe(c.who.ID)
	snap, err := room.Join(ctx, c.who)
	if err != nil {
		sub.Close()
		return nil, err
	}
	c.leaveRoom(false)
	c.attach(room, sub)
	return snap, nil
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", protocol.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrInvalidPayload, err)
	}
	return nil
}

func isRoomEvent(event string) bool {
	switch event {
	case protocol.EventRoomSync, protocol.EventRoomSettings, protocol.EventPlayerReady,
		protocol.EventGameStart, protocol.EventGameVote, protocol.EventGameAction,
		protocol.EventGameAdvance, protocol.EventGameReset, protocol.EventChatMessage:
		return true
	}
	return false
}
