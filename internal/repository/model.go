package repository

import (
	"time"

	"github.com/samber/lo"

	"github.com/fitlink/chat-broker/internal/domain"
)

// UserModel maps the users table.
type UserModel struct {
	ID       uint64 `gorm:"primaryKey"`
	Username string `gorm:"type:varchar(150);uniqueIndex;not null"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToDomain() *domain.User {
	return &domain.User{ID: domain.ID(m.ID), Username: m.Username}
}

// ChatRoomModel maps the chat_rooms table.
type ChatRoomModel struct {
	ID           uint64      `gorm:"primaryKey"`
	Name         string      `gorm:"type:varchar(255);not null"`
	Participants []UserModel `gorm:"many2many:chat_room_participants;joinForeignKey:ChatRoomID;joinReferences:UserID"`
}

func (ChatRoomModel) TableName() string { return "chat_rooms" }

func (m *ChatRoomModel) ToDomain() *domain.Room {
	return &domain.Room{
		ID:   domain.ID(m.ID),
		Name: m.Name,
		Participants: lo.Map(m.Participants, func(u UserModel, _ int) domain.User {
			return *u.ToDomain()
		}),
	}
}

// ChatRoomParticipantModel is the join row between rooms and users.
type ChatRoomParticipantModel struct {
	ChatRoomID uint64 `gorm:"primaryKey"`
	UserID     uint64 `gorm:"primaryKey"`
}

func (ChatRoomParticipantModel) TableName() string { return "chat_room_participants" }

type ExerciseModel struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string `gorm:"type:varchar(255);not null"`
}

func (ExerciseModel) TableName() string { return "exercises" }

// WorkoutModel maps the workouts table.
type WorkoutModel struct {
	ID          uint64          `gorm:"primaryKey"`
	Name        string          `gorm:"type:varchar(255);not null"`
	AuthorID    uint64          `gorm:"index;not null"`
	Owners      []UserModel     `gorm:"many2many:workout_owners;joinForeignKey:WorkoutID;joinReferences:UserID"`
	Exercises   []ExerciseModel `gorm:"many2many:workout_exercises;joinForeignKey:WorkoutID;joinReferences:ExerciseID"`
	DateCreated time.Time       `gorm:"autoCreateTime"`
}

func (WorkoutModel) TableName() string { return "workouts" }

func (m *WorkoutModel) ToDomain() *domain.Workout {
	return &domain.Workout{
		ID:       domain.ID(m.ID),
		Name:     m.Name,
		AuthorID: domain.ID(m.AuthorID),
		Owners: lo.Map(m.Owners, func(u UserModel, _ int) domain.ID {
			return domain.ID(u.ID)
		}),
		Exercises: lo.Map(m.Exercises, func(e ExerciseModel, _ int) domain.ID {
			return domain.ID(e.ID)
		}),
		DateCreated: m.DateCreated,
	}
}

type WorkoutOwnerModel struct {
	WorkoutID uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"primaryKey"`
}

func (WorkoutOwnerModel) TableName() string { return "workout_owners" }

type WorkoutExerciseModel struct {
	WorkoutID  uint64 `gorm:"primaryKey"`
	ExerciseID uint64 `gorm:"primaryKey"`
}

func (WorkoutExerciseModel) TableName() string { return "workout_exercises" }

// MessageModel maps the messages table.
type MessageModel struct {
	ID         uint64    `gorm:"primaryKey"`
	SenderID   uint64    `gorm:"index;not null"`
	ChatRoomID uint64    `gorm:"index;not null"`
	Content    string    `gorm:"type:text;not null"`
	DateSent   time.Time `gorm:"autoCreateTime"`
}

func (MessageModel) TableName() string { return "messages" }

func MessageToModel(m *domain.Message) *MessageModel {
	return &MessageModel{
		SenderID:   uint64(m.SenderID),
		ChatRoomID: uint64(m.RoomID),
		Content:    m.Content,
	}
}

// SharedWorkoutMessageModel maps the shared_workout_messages table.
type SharedWorkoutMessageModel struct {
	ID         uint64    `gorm:"primaryKey"`
	SenderID   uint64    `gorm:"index;not null"`
	ChatRoomID uint64    `gorm:"index;not null"`
	WorkoutID  uint64    `gorm:"index;not null"`
	DateSent   time.Time `gorm:"autoCreateTime"`
}

func (SharedWorkoutMessageModel) TableName() string { return "shared_workout_messages" }

// NotificationModel maps the notifications table. The room name is a
// snapshot; it is not kept in sync with renames.
type NotificationModel struct {
	ID           uint64    `gorm:"primaryKey"`
	RecipientID  uint64    `gorm:"index;not null"`
	SenderID     uint64    `gorm:"not null"`
	SenderName   string    `gorm:"type:varchar(150);not null"`
	ChatRoomID   uint64    `gorm:"index;not null"`
	ChatRoomName string    `gorm:"type:varchar(255);not null"`
	Message      *string   `gorm:"type:text"`
	WorkoutID    *uint64   `gorm:"index"`
	DateSent     time.Time `gorm:"autoCreateTime"`
}

func (NotificationModel) TableName() string { return "notifications" }

func NotificationToModel(n *domain.Notification) *NotificationModel {
	m := &NotificationModel{
		RecipientID:  uint64(n.RecipientID),
		SenderID:     uint64(n.SenderID),
		SenderName:   n.SenderName,
		ChatRoomID:   uint64(n.RoomID),
		ChatRoomName: n.RoomName,
		Message:      n.Message,
	}
	if n.Workout != nil {
		m.WorkoutID = lo.ToPtr(uint64(n.Workout.ID))
	}
	return m
}

// Models lists every table the broker touches, in migration order.
func Models() []any {
	return []any{
		&UserModel{},
		&ChatRoomModel{},
		&ChatRoomParticipantModel{},
		&ExerciseModel{},
		&WorkoutModel{},
		&WorkoutOwnerModel{},
		&WorkoutExerciseModel{},
		&MessageModel{},
		&SharedWorkoutMessageModel{},
		&NotificationModel{},
	}
}
