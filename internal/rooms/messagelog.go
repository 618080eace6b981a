package rooms

import (
	"chat-relay/internal/models"

	"github.com/samber/lo"
)

// MessageLog keeps an append-only, insertion-ordered message list per room.
// Only the Read flag of an entry ever changes.
type MessageLog struct {
	rooms map[string][]models.Message
}

func NewMessageLog() *MessageLog {
	return &MessageLog{rooms: make(map[string][]models.Message)}
}

// Append adds msg to the end of room's log with Read cleared. It reports whether
// an entry with the same ID was already present; the new entry is stored anyway.
func (l *MessageLog) Append(room string, msg models.Message) (duplicate bool) {
	msgs := l.rooms[room]
	duplicate = lo.ContainsBy(msgs, func(m models.Message) bool { return m.ID == msg.ID })
	msg.Read = false
	l.rooms[room] = append(msgs, msg)
	return duplicate
}

// AllOf returns a copy of room's log, empty for unknown rooms.
func (l *MessageLog) AllOf(room string) []models.Message {
	msgs := l.rooms[room]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// MarkRead flags the first message with id as read. It reports whether such a
// message exists; re-marking an already read message is allowed.
func (l *MessageLog) MarkRead(room, id string) bool {
	msgs, ok := l.rooms[room]
	if !ok {
		return false
	}
	_, idx, found := lo.FindIndexOf(msgs, func(m models.Message) bool { return m.ID == id })
	if !found {
		return false
	}
	msgs[idx].Read = true
	return true
}

func (l *MessageLog) Len(room string) int {
	return len(l.rooms[room])
}
