package rooms

import (
	"chat-relay/internal/models"

	"github.com/samber/lo"
)

// Session is the per-connection binding. The zero value is Unbound.
type Session struct {
	Room     string
	Identity string
}

func (s Session) Bound() bool {
	return s.Room != "" && s.Identity != ""
}

// Sessions tracks one Session per live connection.
type Sessions struct {
	byConn map[models.ConnID]Session
}

func NewSessions() *Sessions {
	return &Sessions{byConn: make(map[models.ConnID]Session)}
}

// Open registers conn as Unbound. Opening an existing connection keeps its binding.
func (s *Sessions) Open(conn models.ConnID) {
	if _, ok := s.byConn[conn]; !ok {
		s.byConn[conn] = Session{}
	}
}

func (s *Sessions) Get(conn models.ConnID) (Session, bool) {
	sess, ok := s.byConn[conn]
	return sess, ok
}

func (s *Sessions) Bind(conn models.ConnID, room, identity string) {
	s.byConn[conn] = Session{Room: room, Identity: identity}
}

// Unbind returns conn to Unbound and returns the previous binding.
func (s *Sessions) Unbind(conn models.ConnID) Session {
	prev := s.byConn[conn]
	if _, ok := s.byConn[conn]; ok {
		s.byConn[conn] = Session{}
	}
	return prev
}

// Close discards conn and returns its last binding.
func (s *Sessions) Close(conn models.ConnID) (Session, bool) {
	sess, ok := s.byConn[conn]
	delete(s.byConn, conn)
	return sess, ok
}

// Holders counts live sessions other than except bound to (room, identity).
func (s *Sessions) Holders(room, identity string, except models.ConnID) int {
	return lo.CountBy(lo.Entries(s.byConn), func(e lo.Entry[models.ConnID, Session]) bool {
		return e.Key != except && e.Value.Room == room && e.Value.Identity == identity
	})
}

func (s *Sessions) Count() int {
	return len(s.byConn)
}
