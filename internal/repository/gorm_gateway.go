package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitlink/chat-broker/internal/domain"
	"github.com/fitlink/chat-broker/pkg/database"
	"github.com/fitlink/chat-broker/pkg/log"
)

// GormGateway implements Gateway using GORM.
type GormGateway struct {
	db *gorm.DB
}

// NewGormGateway registers the join tables and returns the gateway.
func NewGormGateway(db *gorm.DB) (*GormGateway, error) {
	if err := setupJoinTables(db); err != nil {
		return nil, err
	}
	return &GormGateway{db: db}, nil
}

func setupJoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&ChatRoomModel{}, "Participants", &ChatRoomParticipantModel{}); err != nil {
		return fmt.Errorf("setup chat_room_participants: %w", err)
	}
	if err := db.SetupJoinTable(&WorkoutModel{}, "Owners", &WorkoutOwnerModel{}); err != nil {
		return fmt.Errorf("setup workout_owners: %w", err)
	}
	if err := db.SetupJoinTable(&WorkoutModel{}, "Exercises", &WorkoutExerciseModel{}); err != nil {
		return fmt.Errorf("setup workout_exercises: %w", err)
	}
	return nil
}

// Migrate creates or updates every table the broker uses.
func Migrate(db *gorm.DB) error {
	if err := setupJoinTables(db); err != nil {
		return err
	}
	return database.AutoMigrate(db, Models()...)
}

func orderByID(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(table + ".id")
	}
}

// GetRoom loads a room with its participants.
func (g *GormGateway) GetRoom(ctx context.Context, id domain.ID) (*domain.Room, error) {
	l := log.Ctx(ctx)

	var model ChatRoomModel
	result := g.db.WithContext(ctx).
		Preload("Participants", orderByID("users")).
		First(&model, "id = ?", uint64(id))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l.Error().Err(result.Error).Uint64(log.FieldRoomID, uint64(id)).Msg("failed to get room by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (g *GormGateway) GetUser(ctx context.Context, id domain.ID) (*domain.User, error) {
	l := log.Ctx(ctx)

	var model UserModel
	result := g.db.WithContext(ctx).First(&model, "id = ?", uint64(id))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		l.Error().Err(result.Error).Uint64(log.FieldUserID, uint64(id)).Msg("failed to get user by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetWorkout loads a workout with its owners and exercises.
func (g *GormGateway) GetWorkout(ctx context.Context, id domain.ID) (*domain.Workout, error) {
	l := log.Ctx(ctx)

	var model WorkoutModel
	result := g.db.WithContext(ctx).
		Preload("Owners", orderByID("users")).
		Preload("Exercises", orderByID("exercises")).
		First(&model, "id = ?", uint64(id))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrWorkoutNotFound
		}
		l.Error().Err(result.Error).Uint64("workout_id", uint64(id)).Msg("failed to get workout by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (g *GormGateway) CreateMessage(ctx context.Context, m *domain.Message) error {
	model := MessageToModel(m)
	if err := g.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	m.ID = domain.ID(model.ID)
	m.DateSent = model.DateSent
	return nil
}

func (g *GormGateway) CreateSharedWorkout(ctx context.Context, m *domain.SharedWorkoutMessage) error {
	model := &SharedWorkoutMessageModel{
		SenderID:   uint64(m.SenderID),
		ChatRoomID: uint64(m.RoomID),
		WorkoutID:  uint64(m.WorkoutID),
	}
	if err := g.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create shared workout message: %w", err)
	}
	m.ID = domain.ID(model.ID)
	m.DateSent = model.DateSent
	return nil
}

func (g *GormGateway) CreateNotification(ctx context.Context, n *domain.Notification) error {
	room, err := g.GetRoom(ctx, n.RoomID)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if room.Name != n.RoomName {
		return fmt.Errorf("create notification: %w: %q != %q", ErrRoomNameMismatch, n.RoomName, room.Name)
	}
	if !room.HasParticipant(n.RecipientID) {
		return fmt.Errorf("create notification for user %d in room %d: %w", n.RecipientID, n.RoomID, ErrNotParticipant)
	}

	model := NotificationToModel(n)
	if err := g.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	n.ID = domain.ID(model.ID)
	n.DateSent = model.DateSent
	return nil
}

func (g *GormGateway) AddWorkoutOwner(ctx context.Context, workoutID, userID domain.ID) (bool, error) {
	db := g.db.WithContext(ctx)

	var count int64
	if err := db.Model(&WorkoutModel{}).Where("id = ?", uint64(workoutID)).Count(&count).Error; err != nil {
		return false, fmt.Errorf("add workout owner: %w", err)
	}
	if count == 0 {
		return false, ErrWorkoutNotFound
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&WorkoutOwnerModel{WorkoutID: uint64(workoutID), UserID: uint64(userID)})
	if result.Error != nil {
		return false, fmt.Errorf("add workout owner: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
