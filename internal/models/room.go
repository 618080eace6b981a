package models

// ConnID identifies one live transport connection.
type ConnID string

// Message is one entry of a room's log. ID uniqueness is the sender's responsibility.
type Message struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Body     string `json:"message"`
	Time     string `json:"time"`
	Read     bool   `json:"read"`
}

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

type RoomInfo struct {
	RoomID  string   `json:"roomId"`
	Members []string `json:"members"`
}

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}
