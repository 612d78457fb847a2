package repository

//go:generate mockgen -source=interface.go -destination=mocks/mock_gateway.go -package=mocks

import (
	"context"
	"errors"

	"github.com/fitlink/chat-broker/internal/domain"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrRoomNameMismatch = errors.New("room name does not match current name")
	ErrNotParticipant   = errors.New("user is not a participant of the room")
)

// Gateway is the broker's view of the relational store. Users, rooms and
// workouts are owned by the main application; the broker reads them, appends
// messages and notifications, and mutates workout owners and room
// participants.
type Gateway interface {
	GetRoom(ctx context.Context, id domain.ID) (*domain.Room, error)
	GetUser(ctx context.Context, id domain.ID) (*domain.User, error)
	GetWorkout(ctx context.Context, id domain.ID) (*domain.Workout, error)

	// CreateMessage stores msg and fills its ID and DateSent.
	CreateMessage(ctx context.Context, msg *domain.Message) error
	// CreateSharedWorkout stores msg and fills its ID and DateSent.
	CreateSharedWorkout(ctx context.Context, msg *domain.SharedWorkoutMessage) error
	// CreateNotification stores n after checking that the room exists, that
	// n.RoomName equals the current room name and that the recipient
	// participates in the room.
	CreateNotification(ctx context.Context, n *domain.Notification) error

	// AddWorkoutOwner adds userID to the workout's owners. It reports false
	// when the user already owned the workout.
	AddWorkoutOwner(ctx context.Context, workoutID, userID domain.ID) (bool, error)
}
