package services

import (
	"sync"
	"testing"

	"chat-relay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher keeps room subscriptions in memory and records what each
// connection would have received.
type fakePublisher struct {
	subs     map[string]map[models.ConnID]bool
	received map[models.ConnID][]models.OutboundEvent
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		subs:     make(map[string]map[models.ConnID]bool),
		received: make(map[models.ConnID][]models.OutboundEvent),
	}
}

func (p *fakePublisher) Subscribe(conn models.ConnID, room string) {
	if p.subs[room] == nil {
		p.subs[room] = make(map[models.ConnID]bool)
	}
	p.subs[room][conn] = true
}

func (p *fakePublisher) Unsubscribe(conn models.ConnID, room string) {
	delete(p.subs[room], conn)
}

func (p *fakePublisher) Publish(room string, evt models.OutboundEvent, exclude models.ConnID) {
	for conn := range p.subs[room] {
		if conn == exclude {
			continue
		}
		p.received[conn] = append(p.received[conn], evt)
	}
}

func (p *fakePublisher) Send(conn models.ConnID, evt models.OutboundEvent) {
	p.received[conn] = append(p.received[conn], evt)
}

// take returns and clears what conn received.
func (p *fakePublisher) take(conn models.ConnID) []models.OutboundEvent {
	got := p.received[conn]
	delete(p.received, conn)
	return got
}

type recorder struct {
	mu         sync.Mutex
	activities []models.Activity
}

func (r *recorder) Record(a models.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = append(r.activities, a)
}

func (r *recorder) kinds() []models.ActivityKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ActivityKind, 0, len(r.activities))
	for _, a := range r.activities {
		out = append(out, a.Kind)
	}
	return out
}

type harness struct {
	t   *testing.T
	svc *RoomService
	pub *fakePublisher
	rec *recorder
}

func newHarness(t *testing.T) *harness {
	rec := &recorder{}
	return &harness{t: t, svc: NewRoomService(rec), pub: newFakePublisher(), rec: rec}
}

func (h *harness) do(conn models.ConnID, evt models.InboundEvent) {
	h.t.Helper()
	emissions, err := h.svc.Handle(conn, evt)
	require.NoError(h.t, err)
	Apply(h.pub, emissions)
}

func (h *harness) disconnect(conn models.ConnID) {
	Apply(h.pub, h.svc.Disconnect(conn))
}

func TestRoomService_Scenario(t *testing.T) {
	h := newHarness(t)
	h.svc.Connect("A")
	h.svc.Connect("B")

	// Given alice joins an empty room
	h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})
	assert.Equal(t, []models.OutboundEvent{
		models.UserJoined([]string{"alice"}),
		models.UserStatus("alice", models.StatusOnline),
		models.LoadMessages([]models.Message{}),
	}, h.pub.take("A"))

	// When bob joins, both see the list and status, only bob gets history
	h.do("B", models.JoinEvent{RoomID: "R1", Username: "bob"})
	wantBroadcast := []models.OutboundEvent{
		models.UserJoined([]string{"alice", "bob"}),
		models.UserStatus("bob", models.StatusOnline),
	}
	assert.Equal(t, wantBroadcast, h.pub.take("A"))
	assert.Equal(t, append(wantBroadcast, models.LoadMessages([]models.Message{})), h.pub.take("B"))

	// When alice sends, only bob receives it
	h.do("A", models.SendMessageEvent{RoomID: "R1", Username: "alice", Message: "hi", Time: "10:00", ID: "m1"})
	assert.Empty(t, h.pub.take("A"))
	assert.Equal(t, []models.OutboundEvent{
		models.ReceiveMessage(models.Message{ID: "m1", Username: "alice", Body: "hi", Time: "10:00", Read: false}),
	}, h.pub.take("B"))

	// When bob reads it, only alice gets the ack
	h.do("B", models.MessageReadEvent{RoomID: "R1", MessageID: "m1"})
	assert.Empty(t, h.pub.take("B"))
	assert.Equal(t, []models.OutboundEvent{models.MessageReadAck("m1")}, h.pub.take("A"))

	assert.True(t, h.svc.History("R1")[0].Read)
	assert.Equal(t,
		[]models.ActivityKind{models.ActivityJoined, models.ActivityJoined, models.ActivityMessage, models.ActivityRead},
		h.rec.kinds())
}

func TestRoomService_JoinIdempotence(t *testing.T) {
	h := newHarness(t)

	h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})
	h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})

	members, ok := h.svc.RoomMembers("R1")
	assert.True(t, ok)
	assert.Equal(t, []string{"alice"}, members)

	// the repeated join re-emits list, status and history
	got := h.pub.take("A")
	require.Len(t, got, 6)
	assert.Equal(t, models.EventLoadMessages, got[5].Name)
}

func TestRoomService_HistoryReplay(t *testing.T) {
	h := newHarness(t)
	h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})

	ids := []string{"m1", "m2", "m3"}
	for _, id := range ids {
		h.do("A", models.SendMessageEvent{RoomID: "R1", Username: "alice", Message: "body " + id, ID: id})
	}
	h.do("A", models.MessageReadEvent{RoomID: "R1", MessageID: "m2"})

	h.do("B", models.JoinEvent{RoomID: "R1", Username: "bob"})
	got := h.pub.take("B")
	require.NotEmpty(t, got)

	history := got[len(got)-1]
	require.Equal(t, models.EventLoadMessages, history.Name)
	msgs, ok := history.Data.([]models.Message)
	require.True(t, ok)
	require.Len(t, msgs, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, msgs[i].ID)
		assert.Equal(t, id == "m2", msgs[i].Read)
	}
}

func TestRoomService_SelfExclusion(t *testing.T) {
	tests := []struct {
		name string
		evt  models.InboundEvent
		want models.EventName
	}{
		{
			name: "message",
			evt:  models.SendMessageEvent{RoomID: "R1", Username: "alice", Message: "hi", ID: "m9"},
			want: models.EventReceiveMessage,
		},
		{
			name: "typing",
			evt:  models.TypingEvent{RoomID: "R1", Username: "alice"},
			want: models.EventUserTyping,
		},
		{
			name: "read",
			evt:  models.MessageReadEvent{RoomID: "R1", MessageID: "m0"},
			want: models.EventMessageReadAck,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})
			h.do("B", models.JoinEvent{RoomID: "R1", Username: "bob"})
			h.do("B", models.SendMessageEvent{RoomID: "R1", Username: "bob", Message: "seed", ID: "m0"})
			h.pub.take("A")
			h.pub.take("B")

			h.do("A", tt.evt)

			assert.Empty(t, h.pub.take("A"))
			got := h.pub.take("B")
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Name)
		})
	}
}

func TestRoomService_ReadIdempotence(t *testing.T) {
	h := newHarness(t)
	h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})
	h.do("B", models.JoinEvent{RoomID: "R1", Username: "bob"})
	h.do("A", models.SendMessageEvent{RoomID: "R1", Username: "alice", Message: "hi", ID: "m1"})
	h.pub.take("A")

	h.do("B", models.MessageReadEvent{RoomID: "R1", MessageID: "m1"})
	h.do("B", models.MessageReadEvent{RoomID: "R1", MessageID: "m1"})

	assert.Equal(t, []models.OutboundEvent{models.MessageReadAck("m1"), models.MessageReadAck("m1")}, h.pub.take("A"))
	assert.True(t, h.svc.History("R1")[0].Read)
	assert.Len(t, h.svc.History("R1"), 1)
}

func TestRoomService_ReadUnknownIDIsNoop(t *testing.T) {
	h := newHarness(t)
	h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})
	h.do("B", models.JoinEvent{RoomID: "R1", Username: "bob"})
	h.pub.take("A")

	emissions, err := h.svc.Handle("B", models.MessageReadEvent{RoomID: "R1", MessageID: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, emissions)

	emissions, err = h.svc.Handle("B", models.MessageReadEvent{RoomID: "nowhere", MessageID: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, emissions)
}

func TestRoomService_PresenceSymmetry(t *testing.T) {
	h := newHarness(t)
	h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})
	h.do("B", models.JoinEvent{RoomID: "R1", Username: "bob"})
	h.do("C", models.JoinEvent{RoomID: "R1", Username: "carol"})
	h.pub.take("A")

	// explicit leave
	h.do("B", models.LeaveRoomEvent{RoomID: "R1", Username: "bob"})
	assert.Equal(t, []models.OutboundEvent{
		models.UserJoined([]string{"alice", "carol"}),
		models.UserStatus("bob", models.StatusOffline),
	}, h.pub.take("A"))
	sess, ok := h.svc.Session("B")
	require.True(t, ok)
	assert.False(t, sess.Bound())

	// bob no longer receives room traffic
	h.pub.take("B")
	h.do("A", models.TypingEvent{RoomID: "R1", Username: "alice"})
	assert.Empty(t, h.pub.take("B"))

	// disconnect
	h.pub.take("C")
	h.disconnect("C")
	assert.Equal(t, []models.OutboundEvent{
		models.UserJoined([]string{"alice"}),
		models.UserStatus("carol", models.StatusOffline),
	}, h.pub.take("A"))
	assert.Empty(t, h.pub.take("C"))
}

func TestRoomService_DisconnectUnbound(t *testing.T) {
	h := newHarness(t)
	h.svc.Connect("A")

	assert.Empty(t, h.svc.Disconnect("A"))
	assert.Empty(t, h.svc.Disconnect("never-seen"))

	// after leave, a disconnect emits nothing more
	h.do("B", models.JoinEvent{RoomID: "R1", Username: "bob"})
	h.do("B", models.LeaveRoomEvent{RoomID: "R1", Username: "bob"})
	assert.Empty(t, h.svc.Disconnect("B"))
	assert.Equal(t, 0, h.svc.SessionCount())
}

func TestRoomService_LeaveUnknownRoom(t *testing.T) {
	h := newHarness(t)
	h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})
	h.pub.take("A")

	emissions, err := h.svc.Handle("A", models.LeaveRoomEvent{RoomID: "R404", Username: "alice"})
	require.NoError(t, err)
	require.Len(t, emissions, 1)
	assert.Equal(t, EmitUnsubscribe, emissions[0].Kind)

	// the original binding survives a leave for another room
	sess, _ := h.svc.Session("A")
	assert.Equal(t, "R1", sess.Room)
}

func TestRoomService_RejoinLeavesPreviousRoom(t *testing.T) {
	h := newHarness(t)
	h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})
	h.do("B", models.JoinEvent{RoomID: "R1", Username: "bob"})
	h.pub.take("A")
	h.pub.take("B")

	h.do("A", models.JoinEvent{RoomID: "R2", Username: "alice"})

	members, _ := h.svc.RoomMembers("R1")
	assert.Equal(t, []string{"bob"}, members)
	assert.Equal(t, []models.OutboundEvent{
		models.UserJoined([]string{"bob"}),
		models.UserStatus("alice", models.StatusOffline),
	}, h.pub.take("B"))
	assert.Equal(t, []models.OutboundEvent{
		models.UserJoined([]string{"alice"}),
		models.UserStatus("alice", models.StatusOnline),
		models.LoadMessages(nil),
	}, h.pub.take("A"))

	sess, _ := h.svc.Session("A")
	assert.Equal(t, "R2", sess.Room)
}

func TestRoomService_MalformedEventsAreDropped(t *testing.T) {
	tests := []struct {
		name    string
		evt     models.InboundEvent
		wantErr error
	}{
		{name: "join without room", evt: models.JoinEvent{Username: "alice"}, wantErr: models.ErrMalformedEvent},
		{name: "message without id", evt: models.SendMessageEvent{RoomID: "R1", Username: "alice", Message: "hi"}, wantErr: models.ErrMalformedEvent},
		{name: "message without body", evt: models.SendMessageEvent{RoomID: "R1", Username: "alice", ID: "m1"}, wantErr: models.ErrMalformedEvent},
		{name: "typing without name", evt: models.TypingEvent{RoomID: "R1"}, wantErr: models.ErrMalformedEvent},
		{name: "read without id", evt: models.MessageReadEvent{RoomID: "R1"}, wantErr: models.ErrMalformedEvent},
		{name: "leave without name", evt: models.LeaveRoomEvent{RoomID: "R1"}, wantErr: models.ErrMalformedEvent},
		{name: "nil event", evt: nil, wantErr: models.ErrMalformedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.do("A", models.JoinEvent{RoomID: "R1", Username: "alice"})

			emissions, err := h.svc.Handle("A", tt.evt)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, emissions)
			assert.Equal(t, 0, h.svc.messages.Len("R1"))
			members, _ := h.svc.RoomMembers("R1")
			assert.Equal(t, []string{"alice"}, members)
		})
	}
}

func TestRoomService_ListRooms(t *testing.T) {
	h := newHarness(t)
	h.do("A", models.JoinEvent{RoomID: "beta", Username: "alice"})
	h.do("B", models.JoinEvent{RoomID: "alpha", Username: "bob"})
	h.do("B", models.LeaveRoomEvent{RoomID: "alpha", Username: "bob"})

	assert.Equal(t, []models.RoomInfo{
		{RoomID: "alpha", Members: []string{}},
		{RoomID: "beta", Members: []string{"alice"}},
	}, h.svc.ListRooms())
}

func TestRoomService_SharedIdentityStaysUntilLastSession(t *testing.T) {
	tests := []struct {
		name    string
		release func(h *harness, conn models.ConnID)
	}{
		{name: "disconnect", release: func(h *harness, conn models.ConnID) { h.disconnect(conn) }},
		{name: "leave", release: func(h *harness, conn models.ConnID) {
			h.do(conn, models.LeaveRoomEvent{RoomID: "R1", Username: "alice"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.do("A1", models.JoinEvent{RoomID: "R1", Username: "alice"})
			h.do("A2", models.JoinEvent{RoomID: "R1", Username: "alice"})
			h.do("B", models.JoinEvent{RoomID: "R1", Username: "bob"})
			h.pub.take("A1")
			h.pub.take("A2")
			h.pub.take("B")

			// the first alice session goes, the second still holds the name
			tt.release(h, "A1")
			assert.Empty(t, h.pub.take("A2"))
			assert.Empty(t, h.pub.take("B"))
			members, _ := h.svc.RoomMembers("R1")
			assert.Equal(t, []string{"alice", "bob"}, members)

			// the last alice session goes
			tt.release(h, "A2")
			assert.Equal(t, []models.OutboundEvent{
				models.UserJoined([]string{"bob"}),
				models.UserStatus("alice", models.StatusOffline),
			}, h.pub.take("B"))
			members, _ = h.svc.RoomMembers("R1")
			assert.Equal(t, []string{"bob"}, members)
		})
	}
}
