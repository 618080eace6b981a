package services

import (
	"fmt"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/rooms"
	"chat-relay/pkg/logger"
)

// ActivityRecorder receives lifecycle transitions. Implementations must not block.
type ActivityRecorder interface {
	Record(models.Activity)
}

type nopRecorder struct{}

func (nopRecorder) Record(models.Activity) {}

// RoomService turns inbound events into state changes and outbound emissions.
// It is not safe for concurrent use: one event loop owns it.
type RoomService struct {
	directory *rooms.Directory
	messages  *rooms.MessageLog
	sessions  *rooms.Sessions
	recorder  ActivityRecorder
	log       *logger.Logger
	now       func() time.Time
}

func NewRoomService(recorder ActivityRecorder) *RoomService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &RoomService{
		directory: rooms.NewDirectory(),
		messages:  rooms.NewMessageLog(),
		sessions:  rooms.NewSessions(),
		recorder:  recorder,
		log:       logger.With("services.room"),
		now:       time.Now,
	}
}

// Connect opens an Unbound session for conn.
func (s *RoomService) Connect(conn models.ConnID) {
	s.sessions.Open(conn)
}

// Handle applies one inbound event for conn. Malformed or unknown events return
// an error and no emissions; the caller drops them without telling the peer.
func (s *RoomService) Handle(conn models.ConnID, evt models.InboundEvent) ([]Emission, error) {
	if evt == nil {
		return nil, fmt.Errorf("%w: nil event", models.ErrMalformedEvent)
	}
	if err := models.Validate(evt); err != nil {
		return nil, err
	}
	s.sessions.Open(conn)

	switch e := evt.(type) {
	case models.JoinEvent:
		return s.join(conn, e), nil
	case models.SendMessageEvent:
		return s.sendMessage(conn, e), nil
	case models.TypingEvent:
		return s.typing(conn, e), nil
	case models.MessageReadEvent:
		return s.messageRead(conn, e), nil
	case models.LeaveRoomEvent:
		return s.leave(conn, e), nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEvent, evt.Name())
	}
}

// Disconnect discards conn's session. A bound session leaves its room and the
// remaining subscribers see the new member list and an offline status.
func (s *RoomService) Disconnect(conn models.ConnID) []Emission {
	sess, ok := s.sessions.Close(conn)
	if !ok || !sess.Bound() {
		return nil
	}
	if s.sessions.Holders(sess.Room, sess.Identity, conn) > 0 {
		s.log.Debug("%s still connected to %s elsewhere", sess.Identity, sess.Room)
		return []Emission{unsubscribe(conn, sess.Room)}
	}

	s.directory.Leave(sess.Room, sess.Identity)
	s.record(models.ActivityDisconnected, sess.Room, sess.Identity, "")
	s.log.Info("%s disconnected from %s", sess.Identity, sess.Room)

	return []Emission{
		unsubscribe(conn, sess.Room),
		toRoom(sess.Room, models.UserJoined(s.directory.MembersOf(sess.Room))),
		toRoom(sess.Room, models.UserStatus(sess.Identity, rooms.StatusOf(s.directory, sess.Room, sess.Identity))),
	}
}

func (s *RoomService) join(conn models.ConnID, e models.JoinEvent) []Emission {
	var out []Emission

	// A session holds one room at a time; switching rooms or names leaves first.
	if prev, _ := s.sessions.Get(conn); prev.Bound() && (prev.Room != e.RoomID || prev.Identity != e.Username) {
		out = append(out, s.leaveBinding(conn, prev.Room, prev.Identity)...)
	}

	s.sessions.Bind(conn, e.RoomID, e.Username)
	s.directory.Join(e.RoomID, e.Username)
	s.record(models.ActivityJoined, e.RoomID, e.Username, "")
	s.log.Debug("%s joined %s", e.Username, e.RoomID)

	return append(out,
		subscribe(conn, e.RoomID),
		toRoom(e.RoomID, models.UserJoined(s.directory.MembersOf(e.RoomID))),
		toRoom(e.RoomID, models.UserStatus(e.Username, rooms.StatusOf(s.directory, e.RoomID, e.Username))),
		toConn(conn, models.LoadMessages(s.messages.AllOf(e.RoomID))),
	)
}

func (s *RoomService) sendMessage(conn models.ConnID, e models.SendMessageEvent) []Emission {
	msg := models.Message{
		ID:       e.ID,
		Username: e.Username,
		Body:     e.Message,
		Time:     e.Time,
	}
	if duplicate := s.messages.Append(e.RoomID, msg); duplicate {
		s.log.Warn("message id %s reused in %s; reads resolve to the first entry", e.ID, e.RoomID)
	}
	s.record(models.ActivityMessage, e.RoomID, e.Username, e.ID)

	return []Emission{toRoomExcept(e.RoomID, conn, models.ReceiveMessage(msg))}
}

func (s *RoomService) typing(conn models.ConnID, e models.TypingEvent) []Emission {
	return []Emission{toRoomExcept(e.RoomID, conn, models.UserTyping(e.Username))}
}

func (s *RoomService) messageRead(conn models.ConnID, e models.MessageReadEvent) []Emission {
	if !s.messages.MarkRead(e.RoomID, e.MessageID) {
		s.log.Debug("read for unknown message %s in %s ignored", e.MessageID, e.RoomID)
		return nil
	}
	s.record(models.ActivityRead, e.RoomID, "", e.MessageID)

	return []Emission{toRoomExcept(e.RoomID, conn, models.MessageReadAck(e.MessageID))}
}

func (s *RoomService) leave(conn models.ConnID, e models.LeaveRoomEvent) []Emission {
	out := s.leaveBinding(conn, e.RoomID, e.Username)

	if sess, _ := s.sessions.Get(conn); sess.Room == e.RoomID {
		s.sessions.Unbind(conn)
	}
	return out
}

// leaveBinding removes identity from room and unsubscribes conn. Rooms the
// directory has never seen, and identities another session still holds in
// room, produce no broadcast.
func (s *RoomService) leaveBinding(conn models.ConnID, room, identity string) []Emission {
	out := []Emission{unsubscribe(conn, room)}
	if !s.directory.Has(room) || s.sessions.Holders(room, identity, conn) > 0 {
		return out
	}

	s.directory.Leave(room, identity)
	s.record(models.ActivityLeft, room, identity, "")
	s.log.Debug("%s left %s", identity, room)

	return append(out,
		toRoom(room, models.UserJoined(s.directory.MembersOf(room))),
		toRoom(room, models.UserStatus(identity, rooms.StatusOf(s.directory, room, identity))),
	)
}

func (s *RoomService) record(kind models.ActivityKind, room, username, messageID string) {
	s.recorder.Record(models.Activity{
		Kind:       kind,
		Room:       room,
		Username:   username,
		MessageID:  messageID,
		OccurredAt: s.now(),
	})
}

// ListRooms returns every known room with its members in join order.
func (s *RoomService) ListRooms() []models.RoomInfo {
	names := s.directory.Rooms()
	out := make([]models.RoomInfo, 0, len(names))
	for _, name := range names {
		out = append(out, models.RoomInfo{RoomID: name, Members: s.directory.MembersOf(name)})
	}
	return out
}

// RoomMembers returns room's member snapshot and whether the room is known.
func (s *RoomService) RoomMembers(roomID string) ([]string, bool) {
	return s.directory.MembersOf(roomID), s.directory.Has(roomID)
}

// History returns room's message log.
func (s *RoomService) History(roomID string) []models.Message {
	return s.messages.AllOf(roomID)
}

// Session returns conn's current binding.
func (s *RoomService) Session(conn models.ConnID) (rooms.Session, bool) {
	return s.sessions.Get(conn)
}

func (s *RoomService) SessionCount() int {
	return s.sessions.Count()
}
