package websocket

import (
	"context"
	"errors"

	"chat-relay/internal/models"
	"chat-relay/internal/services"
	"chat-relay/pkg/logger"
)

var ErrHubStopped = errors.New("hub stopped")

// inboundFrame carries one client frame, or the client's close when closed is
// set. Both share one queue so a close never overtakes earlier frames.
type inboundFrame struct {
	client *Client
	data   []byte
	closed bool
}

type inspection struct {
	fn   func(*services.RoomService)
	done chan struct{}
}

// Hub is the single event loop of the relay. It owns the RoomService and every
// room subscription; all inbound frames, registrations and inspections are
// handled one at a time on the goroutine running Run.
type Hub struct {
	clients  map[models.ConnID]*Client
	rooms    map[string]map[models.ConnID]*Client
	evicted  []*Client
	register chan *Client
	inbound  chan inboundFrame
	inspect  chan inspection
	done     chan struct{}
	service  *services.RoomService
	log      *logger.Logger
}

func NewHub(service *services.RoomService) *Hub {
	return &Hub{
		clients:  make(map[models.ConnID]*Client),
		rooms:    make(map[string]map[models.ConnID]*Client),
		register: make(chan *Client),
		inbound:  make(chan inboundFrame, 256),
		inspect:  make(chan inspection),
		done:     make(chan struct{}),
		service:  service,
		log:      logger.With("websocket.hub"),
	}
}

// Run processes events until ctx is cancelled, then closes every client queue.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[models.ConnID]*Client)
			h.rooms = make(map[string]map[models.ConnID]*Client)
			h.log.Info("Hub stopped")
			return

		case client := <-h.register:
			h.attach(client)

		case frame := <-h.inbound:
			if frame.closed {
				h.disconnect(frame.client)
				continue
			}
			h.handleFrame(frame.client, frame.data)

		case req := <-h.inspect:
			req.fn(h.service)
			close(req.done)
		}
	}
}

// Inspect runs fn on the event loop and waits for it to return. fn must not
// retain the service.
func (h *Hub) Inspect(ctx context.Context, fn func(*services.RoomService)) error {
	req := inspection{fn: fn, done: make(chan struct{})}
	select {
	case h.inspect <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports known rooms and live connections.
func (h *Hub) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := h.Inspect(ctx, func(s *services.RoomService) {
		stats.Rooms = len(s.ListRooms())
		stats.Connections = s.SessionCount()
	})
	return stats, err
}

// Attach registers c with the running hub.
func (h *Hub) Attach(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) submit(c *Client, data []byte) bool {
	return h.enqueue(inboundFrame{client: c, data: data})
}

// unregister queues c's close behind every frame it already submitted.
func (h *Hub) unregister(c *Client) {
	h.enqueue(inboundFrame{client: c, closed: true})
}

func (h *Hub) enqueue(frame inboundFrame) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbound <- frame:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) attach(c *Client) {
	h.clients[c.id] = c
	h.service.Connect(c.id)
	h.log.Info("Connection %s opened", c.id)
}

func (h *Hub) disconnect(c *Client) {
	if h.clients[c.id] != c {
		return
	}
	h.remove(c)
	services.Apply(h, h.service.Disconnect(c.id))
	h.flushEvictions()
	h.log.Info("Connection %s closed", c.id)
}

func (h *Hub) handleFrame(c *Client, data []byte) {
	if h.clients[c.id] != c {
		return
	}
	evt, err := models.DecodeInbound(data)
	if err != nil {
		h.log.Debug("Dropped frame from %s: %v", c.id, err)
		return
	}
	emissions, err := h.service.Handle(c.id, evt)
	if err != nil {
		h.log.Debug("Dropped %s from %s: %v", evt.Name(), c.id, err)
		return
	}
	services.Apply(h, emissions)
	h.flushEvictions()
}

// remove forgets c and closes its queue, which ends its write pump.
func (h *Hub) remove(c *Client) {
	for room := range c.rooms {
		delete(h.rooms[room], c.id)
	}
	c.rooms = nil
	delete(h.clients, c.id)
	close(c.send)
}

// flushEvictions disconnects clients whose queues overflowed during delivery.
// Their departure can overflow further queues, so it loops until none remain.
func (h *Hub) flushEvictions() {
	for len(h.evicted) > 0 {
		c := h.evicted[0]
		h.evicted = h.evicted[1:]
		h.log.Warn("Dropping connection %s: %v", c.id, c.evicted)
		h.disconnect(c)
	}
}

// Publisher implementation. Only called from the event loop.

func (h *Hub) Subscribe(conn models.ConnID, room string) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[models.ConnID]*Client)
	}
	h.rooms[room][conn] = c
	if c.rooms == nil {
		c.rooms = make(map[string]bool)
	}
	c.rooms[room] = true
}

func (h *Hub) Unsubscribe(conn models.ConnID, room string) {
	delete(h.rooms[room], conn)
	if c, ok := h.clients[conn]; ok {
		delete(c.rooms, room)
	}
}

func (h *Hub) Publish(room string, evt models.OutboundEvent, exclude models.ConnID) {
	frame, err := models.Encode(evt)
	if err != nil {
		h.log.Error("Error encoding %s: %v", evt.Name, err)
		return
	}
	for id, c := range h.rooms[room] {
		if id == exclude {
			continue
		}
		h.deliver(c, frame)
	}
}

func (h *Hub) Send(conn models.ConnID, evt models.OutboundEvent) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	frame, err := models.Encode(evt)
	if err != nil {
		h.log.Error("Error encoding %s: %v", evt.Name, err)
		return
	}
	h.deliver(c, frame)
}

func (h *Hub) deliver(c *Client, frame []byte) {
	if c.evicted != nil {
		return
	}
	if err := c.enqueue(frame); err != nil {
		c.evicted = err
		h.evicted = append(h.evicted, c)
	}
}
