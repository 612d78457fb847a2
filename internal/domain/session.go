package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// SessionState is the lifecycle of one client connection.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateJoined
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when a session is moved out of order.
var ErrInvalidTransition = errors.New("invalid session transition")

// Session holds the runtime state of one connection: Connecting, then
// Authenticated, then Joined, then Closed. Any failure goes straight to Closed.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActiveAt time.Time

	state  SessionState
	user   *User
	roomID ID
	mu     sync.RWMutex
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
		state:        StateConnecting,
	}
}

// Authenticate binds the identity resolved from the bearer token.
func (s *Session) Authenticate(user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return fmt.Errorf("%w: authenticate from %s", ErrInvalidTransition, s.state)
	}
	s.user = &user
	s.state = StateAuthenticated
	s.LastActiveAt = time.Now()
	return nil
}

// Join binds the session to roomID.
func (s *Session) Join(roomID ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return fmt.Errorf("%w: join from %s", ErrInvalidTransition, s.state)
	}
	s.roomID = roomID
	s.state = StateJoined
	s.LastActiveAt = time.Now()
	return nil
}

// Close moves the session to Closed. It returns the bound room and whether
// the session was joined; closing twice reports false the second time.
func (s *Session) Close() (ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasJoined := s.state == StateJoined
	s.state = StateClosed
	return s.roomID, wasJoined
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the authenticated user, if any.
func (s *Session) Identity() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// RoomID returns the bound room while the session is joined.
func (s *Session) RoomID() (ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID, s.state == StateJoined
}

func (s *Session) CanReceive() bool {
	return s.State() == StateJoined
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
