package game

import (
	"time"

	"github.com/dom/mafia-server/internal/domain"
)

// EventLog is a room's append-only message stream. IDs start at 1 and
// increase by one per append.
type EventLog struct {
	messages []domain.Message
	nextID   int64
}

func NewEventLog() *EventLog {
	return &EventLog{nextID: 1}
}

// Append stamps msg with the next ID and stores it.
func (l *EventLog) Append(msg domain.Message, at time.Time) domain.Message {
	msg.ID = l.nextID
	msg.Timestamp = at
	l.nextID++
	l.messages = append(l.messages, msg)
	return msg
}

// Recent returns up to n of the newest messages, oldest first.
func (l *EventLog) Recent(n int) []domain.Message {
	if n <= 0 || n > len(l.messages) {
		n = len(l.messages)
	}
	out := make([]domain.Message, n)
	copy(out, l.messages[len(l.messages)-n:])
	return out
}

func (l *EventLog) All() []domain.Message {
	return l.Recent(0)
}

func (l *EventLog) Len() int {
	return len(l.messages)
}
