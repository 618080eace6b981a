package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type EventName string

// Inbound events (client to server).
const (
	EventJoin        EventName = "join"
	EventSendMessage EventName = "sendMessage"
	EventTyping      EventName = "typing"
	EventMessageRead EventName = "messageRead"
	EventLeaveRoom   EventName = "leaveRoom"
)

// Outbound events (server to clients).
const (
	EventUserJoined     EventName = "userJoined"
	EventUserStatus     EventName = "userStatus"
	EventLoadMessages   EventName = "loadMessages"
	EventReceiveMessage EventName = "receiveMessage"
	EventUserTyping     EventName = "userTyping"
	EventMessageReadAck EventName = "messageReadAck"
)

// Envelope is the frame layout in both directions.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type InboundEvent interface {
	Name() EventName
}

type JoinEvent struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type SendMessageEvent struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username" validate:"required"`
	Message  string `json:"message" validate:"required"`
	Time     string `json:"time"`
	ID       string `json:"id" validate:"required"`
}

type TypingEvent struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type MessageReadEvent struct {
	RoomID    string `json:"roomId" validate:"required"`
	MessageID string `json:"messageId" validate:"required"`
}

type LeaveRoomEvent struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username" validate:"required"`
}

func (JoinEvent) Name() EventName        { return EventJoin }
func (SendMessageEvent) Name() EventName { return EventSendMessage }
func (TypingEvent) Name() EventName      { return EventTyping }
func (MessageReadEvent) Name() EventName { return EventMessageRead }
func (LeaveRoomEvent) Name() EventName   { return EventLeaveRoom }

// OutboundEvent is a named event with its payload, encoded lazily by the transport.
type OutboundEvent struct {
	Name EventName
	Data any
}

type UserStatusPayload struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
}

type ReadAckPayload struct {
	MessageID string `json:"messageId"`
}

func UserJoined(members []string) OutboundEvent {
	if members == nil {
		members = []string{}
	}
	return OutboundEvent{Name: EventUserJoined, Data: members}
}

func UserStatus(username string, status Status) OutboundEvent {
	return OutboundEvent{Name: EventUserStatus, Data: UserStatusPayload{Username: username, Status: status}}
}

func LoadMessages(messages []Message) OutboundEvent {
	if messages == nil {
		messages = []Message{}
	}
	return OutboundEvent{Name: EventLoadMessages, Data: messages}
}

func ReceiveMessage(msg Message) OutboundEvent {
	return OutboundEvent{Name: EventReceiveMessage, Data: msg}
}

func UserTyping(username string) OutboundEvent {
	return OutboundEvent{Name: EventUserTyping, Data: username}
}

func MessageReadAck(messageID string) OutboundEvent {
	return OutboundEvent{Name: EventMessageReadAck, Data: ReadAckPayload{MessageID: messageID}}
}

var validate = validator.New()

// DecodeInbound parses one client frame. Frames with an unknown event name yield
// ErrUnknownEvent; undecodable frames or missing required fields yield ErrMalformedEvent.
func DecodeInbound(frame []byte) (InboundEvent, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var evt InboundEvent
	switch env.Event {
	case EventJoin:
		evt = &JoinEvent{}
	case EventSendMessage:
		evt = &SendMessageEvent{}
	case EventTyping:
		evt = &TypingEvent{}
	case EventMessageRead:
		evt = &MessageReadEvent{}
	case EventLeaveRoom:
		evt = &LeaveRoomEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: %s without payload", ErrMalformedEvent, env.Event)
	}
	if err := json.Unmarshal(env.Data, evt); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Event, err)
	}
	if err := Validate(evt); err != nil {
		return nil, err
	}

	return deref(evt), nil
}

// Validate checks that every required field of an inbound payload is non-empty.
func Validate(evt InboundEvent) error {
	if err := validate.Struct(evt); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, evt.Name(), err)
	}
	return nil
}

func deref(evt InboundEvent) InboundEvent {
	switch e := evt.(type) {
	case *JoinEvent:
		return *e
	case *SendMessageEvent:
		return *e
	case *TypingEvent:
		return *e
	case *MessageReadEvent:
		return *e
	case *LeaveRoomEvent:
		return *e
	}
	return evt
}

// Encode renders an outbound event as a wire frame.
func Encode(evt OutboundEvent) ([]byte, error) {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", evt.Name, err)
	}
	return json.Marshal(Envelope{Event: evt.Name, Data: data})
}
