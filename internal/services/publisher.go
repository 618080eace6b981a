package services

import "chat-relay/internal/models"

// Publisher is the per-room broadcast primitive the transport provides.
type Publisher interface {
	Subscribe(conn models.ConnID, room string)
	Unsubscribe(conn models.ConnID, room string)
	// Publish delivers evt to every subscriber of room except exclude. An empty
	// exclude reaches the whole room.
	Publish(room string, evt models.OutboundEvent, exclude models.ConnID)
	Send(conn models.ConnID, evt models.OutboundEvent)
}

type EmissionKind int

const (
	EmitSubscribe EmissionKind = iota
	EmitUnsubscribe
	EmitPublish
	EmitSend
)

// Emission is one effect a handler asks the transport to perform.
type Emission struct {
	Kind    EmissionKind
	Conn    models.ConnID
	Room    string
	Exclude models.ConnID
	Event   models.OutboundEvent
}

func subscribe(conn models.ConnID, room string) Emission {
	return Emission{Kind: EmitSubscribe, Conn: conn, Room: room}
}

func unsubscribe(conn models.ConnID, room string) Emission {
	return Emission{Kind: EmitUnsubscribe, Conn: conn, Room: room}
}

func toRoom(room string, evt models.OutboundEvent) Emission {
	return Emission{Kind: EmitPublish, Room: room, Event: evt}
}

func toRoomExcept(room string, sender models.ConnID, evt models.OutboundEvent) Emission {
	return Emission{Kind: EmitPublish, Room: room, Exclude: sender, Event: evt}
}

func toConn(conn models.ConnID, evt models.OutboundEvent) Emission {
	return Emission{Kind: EmitSend, Conn: conn, Event: evt}
}

// Apply performs emissions on pub in order.
func Apply(pub Publisher, emissions []Emission) {
	for _, e := range emissions {
		switch e.Kind {
		case EmitSubscribe:
			pub.Subscribe(e.Conn, e.Room)
		case EmitUnsubscribe:
			pub.Unsubscribe(e.Conn, e.Room)
		case EmitPublish:
			pub.Publish(e.Room, e.Event, e.Exclude)
		case EmitSend:
			pub.Send(e.Conn, e.Event)
		}
	}
}
