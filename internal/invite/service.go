// Package invite issues signed, expiring links that point at a room. An invite
// only names a room; joining stays open to anyone who knows the room id.
package invite

import (
	"crypto/rand"
	"fmt"
	"time"

	"chat-relay/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const roomClaim = "room"

type Invite struct {
	RoomID    string    `json:"roomId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService signs with secret. An empty secret is replaced with a random one,
// so invites stay valid only for the life of the process.
func NewService(secret []byte, ttl time.Duration) (*Service, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate invite secret: %w", err)
		}
	}
	return &Service{secret: secret, ttl: ttl, now: time.Now}, nil
}

// NewRoomID returns a fresh random room key.
func NewRoomID() string {
	return uuid.NewString()
}

// Create issues an invite for roomID, or for a new random room when roomID is empty.
func (s *Service) Create(roomID string) (*Invite, error) {
	if roomID == "" {
		roomID = NewRoomID()
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := jwt.MapClaims{
		roomClaim: roomID,
		"iat":     issuedAt.Unix(),
		"exp":     expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign invite: %w", err)
	}

	return &Invite{RoomID: roomID, Token: token, ExpiresAt: time.Unix(expiresAt.Unix(), 0).UTC()}, nil
}

// Resolve verifies token and returns the room it points at.
func (s *Service) Resolve(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidInvite, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", models.ErrInvalidInvite
	}

	roomID, ok := claims[roomClaim].(string)
	if !ok || roomID == "" {
		return "", fmt.Errorf("%w: missing room", models.ErrInvalidInvite)
	}
	return roomID, nil
}
