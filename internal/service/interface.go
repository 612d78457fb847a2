package service

import (
	"context"
	"errors"

	"github.com/fitlink/chat-broker/internal/domain"
	"github.com/fitlink/chat-broker/internal/hub"
	"github.com/fitlink/chat-broker/pkg/jwt"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRoomNotFound = errors.New("room not found")
)

// Conn is a connected client as seen by the service.
type Conn interface {
	hub.Member
	Session() *domain.Session
}

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

type ChatService interface {
	// Connect authenticates the session from token and resolves the room
	// named by roomParam. On failure the session is closed and the error
	// wraps ErrMissingToken, ErrUnauthorized or ErrRoomNotFound.
	Connect(ctx context.Context, sess *domain.Session, token, roomParam string) (*domain.Room, error)
	// Join registers an authenticated connection in room.
	Join(ctx context.Context, c Conn, room *domain.Room) error
	// HandleFrame decodes and handles one inbound frame. Expected
	// per-message failures are returned as *domain.DropError.
	HandleFrame(ctx context.Context, c Conn, data []byte) error
	// Disconnect unregisters the connection and closes it. It is idempotent.
	Disconnect(ctx context.Context, c Conn)
}
