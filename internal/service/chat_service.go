package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fitlink/chat-broker/internal/audit"
	"github.com/fitlink/chat-broker/internal/cache"
	"github.com/fitlink/chat-broker/internal/domain"
	"github.com/fitlink/chat-broker/internal/hub"
	"github.com/fitlink/chat-broker/internal/repository"
	"github.com/fitlink/chat-broker/pkg/log"
)

type chatService struct {
	tokens   TokenValidator
	gateway  repository.Gateway
	registry hub.Registry
	cache    cache.RoomCache
	cacheTTL time.Duration
	sf       singleflight.Group
	now      func() time.Time
}

// Option customises the chat service.
type Option func(*chatService)

// WithRoomCache enables cache-aside room lookups on connect.
func WithRoomCache(c cache.RoomCache, ttl time.Duration) Option {
	return func(s *chatService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithClock overrides the clock used for notification events.
func WithClock(now func() time.Time) Option {
	return func(s *chatService) { s.now = now }
}

func NewChatService(
	tokens TokenValidator,
	gateway repository.Gateway,
	registry hub.Registry,
	opts ...Option,
) ChatService {
	s := &chatService{
		tokens:   tokens,
		gateway:  gateway,
		registry: registry,
		cache:    cache.NopRoomCache{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *chatService) Connect(ctx context.Context, sess *domain.Session, token, roomParam string) (*domain.Room, error) {
	user, err := s.authenticate(ctx, token)
	if err != nil {
		sess.Close()
		audit.LogWithDetail(ctx, audit.ActionAuthFailed, 0, err.Error(), "connection rejected")
		return nil, err
	}
	if err := sess.Authenticate(*user); err != nil {
		return nil, err
	}
	audit.Log(ctx, audit.ActionConnect, user.ID, "user authenticated")

	roomID, err := domain.ParseID(roomParam)
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("%w: %v", ErrRoomNotFound, err)
	}

	room, err := s.lookupRoom(ctx, roomID)
	if err != nil {
		sess.Close()
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrRoomNotFound, roomID)
		}
		return nil, fmt.Errorf("lookup room %d: %w", roomID, err)
	}
	return room, nil
}

func (s *chatService) authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.gateway.GetUser(ctx, domain.ID(claims.UserID))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %d does not exist", ErrUnauthorized, claims.UserID)
		}
		return nil, fmt.Errorf("resolve user %d: %w", claims.UserID, err)
	}
	return user, nil
}

// lookupRoom reads through the room cache. Concurrent connects to the same
// room share one lookup.
func (s *chatService) lookupRoom(ctx context.Context, roomID domain.ID) (*domain.Room, error) {
	key := s.cache.BuildKeyByID(roomID)

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		l := log.Ctx(ctx)

		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn().Err(err).Msg("cache get error")
		}

		room, err := s.gateway.GetRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}

		if err := s.cache.Set(ctx, key, room, s.cacheTTL); err != nil {
			l.Warn().Err(err).Msg("cache set error")
		}
		return room, nil
	})
	if err != nil {
		return nil, err
	}

	room, ok := result.(*domain.Room)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return room, nil
}

func (s *chatService) Join(ctx context.Context, c Conn, room *domain.Room) error {
	sess := c.Session()
	if err := sess.Join(room.ID); err != nil {
		return err
	}
	s.registry.Join(room.ID, c)

	user, _ := sess.Identity()
	audit.LogWithDetail(ctx, audit.ActionJoinRoom, user.ID, room.ID.String(), "joined room")
	return nil
}

func (s *chatService) Disconnect(ctx context.Context, c Conn) {
	roomID, wasJoined := c.Session().Close()
	if wasJoined {
		s.registry.Leave(roomID, c)
	}
	c.Close()

	if user, ok := c.Session().Identity(); ok && wasJoined {
		audit.LogWithDetail(ctx, audit.ActionDisconnect, user.ID, roomID.String(), "disconnected")
	}
}

func (s *chatService) HandleFrame(ctx context.Context, c Conn, data []byte) error {
	sess := c.Session()
	if !sess.CanReceive() {
		return domain.Drop(domain.DropNotJoined, "session is %s", sess.State())
	}
	sender, ok := sess.Identity()
	if !ok {
		return domain.Drop(domain.DropNoIdentity, "joined session without identity")
	}
	roomID, _ := sess.RoomID()

	frame, err := domain.DecodeFrame(data)
	if err != nil {
		return err
	}

	switch f := frame.(type) {
	case domain.ChatText:
		return s.handleChatText(ctx, sender, roomID, f.Message)
	case domain.UnknownFrame:
		// Unrecognised types are treated as chat text, as older clients
		// send them.
		return s.handleChatText(ctx, sender, roomID, f.Message)
	case domain.SharedWorkout:
		return s.handleSharedWorkout(ctx, sender, roomID, f)
	case domain.OwnershipConfirmation:
		return s.handleConfirmation(ctx, sender, roomID, f)
	case domain.LeaveRoom:
		return s.handleLeave(ctx, sender, roomID, f)
	case domain.Ping:
		return s.reply(c, domain.NewPongEvent())
	default:
		return fmt.Errorf("unhandled frame %T", frame)
	}
}

func (s *chatService) reply(c Conn, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := c.Deliver(data); err != nil {
		return fmt.Errorf("reply %s: %w", event.EventType(), err)
	}
	return nil
}

func (s *chatService) handleChatText(ctx context.Context, sender domain.User, roomID domain.ID, text string) error {
	if text == "" {
		return domain.Drop(domain.DropEmptyMessage, "")
	}

	msg := &domain.Message{SenderID: sender.ID, RoomID: roomID, Content: text}
	if err := s.gateway.CreateMessage(ctx, msg); err != nil {
		return err
	}
	if err := s.registry.Broadcast(ctx, roomID, domain.NewChatMessageEvent(*msg)); err != nil {
		return err
	}
	audit.LogWithDetail(ctx, audit.ActionSendMessage, sender.ID, msg.ID.String(), "message sent")

	return s.fanOut(ctx, sender, roomID, domain.TextBody(text))
}

func (s *chatService) handleSharedWorkout(ctx context.Context, sender domain.User, roomID domain.ID, f domain.SharedWorkout) error {
	if f.WorkoutID == nil {
		return domain.Drop(domain.DropMissingWorkoutID, "")
	}

	workout, err := s.getWorkout(ctx, *f.WorkoutID)
	if err != nil {
		return err
	}

	shared := &domain.SharedWorkoutMessage{SenderID: sender.ID, RoomID: roomID, WorkoutID: workout.ID}
	if err := s.gateway.CreateSharedWorkout(ctx, shared); err != nil {
		return err
	}

	view := workout.View()
	if err := s.registry.Broadcast(ctx, roomID, domain.NewWorkoutMessageEvent(view, sender.ID)); err != nil {
		return err
	}
	audit.LogTarget(ctx, audit.ActionShareWorkout, sender.ID, workout.ID, "workout shared")

	return s.fanOut(ctx, sender, roomID, domain.WorkoutBody(view))
}

func (s *chatService) handleConfirmation(ctx context.Context, sender domain.User, roomID domain.ID, f domain.OwnershipConfirmation) error {
	if f.WorkoutID == nil {
		return domain.Drop(domain.DropMissingWorkoutID, "")
	}
	if f.UserID == nil {
		return domain.Drop(domain.DropMissingUserID, "")
	}

	workout, err := s.getWorkout(ctx, *f.WorkoutID)
	if err != nil {
		return err
	}
	user, err := s.gateway.GetUser(ctx, *f.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.Drop(domain.DropUserNotFound, "user %d", *f.UserID)
		}
		return err
	}

	if workout.IsOwner(user.ID) {
		return domain.Drop(domain.DropAlreadyOwner, "user %d owns workout %d", user.ID, workout.ID)
	}
	added, err := s.gateway.AddWorkoutOwner(ctx, workout.ID, user.ID)
	if err != nil {
		return err
	}
	if !added {
		return domain.Drop(domain.DropAlreadyOwner, "user %d owns workout %d", user.ID, workout.ID)
	}

	workout, err = s.getWorkout(ctx, workout.ID)
	if err != nil {
		return err
	}
	if err := s.registry.Broadcast(ctx, roomID, domain.NewConfirmationEvent(workout.View(), user.Username)); err != nil {
		return err
	}
	audit.LogTarget(ctx, audit.ActionConfirmWorkout, sender.ID, workout.ID, "added "+user.Username+" to workout owners")
	return nil
}

func (s *chatService) handleLeave(ctx context.Context, sender domain.User, roomID domain.ID, f domain.LeaveRoom) error {
	if f.UserID != nil && *f.UserID != sender.ID {
		return domain.Drop(domain.DropNotSelf, "user %d cannot announce user %d", sender.ID, *f.UserID)
	}

	// Membership rows belong to the rooms API, which removes the participant
	// after the client announces the leave here.
	room, err := s.gateway.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("leave: %w", err)
	}
	if !room.HasParticipant(sender.ID) {
		return domain.Drop(domain.DropNotParticipant, "user %d in room %d", sender.ID, roomID)
	}

	if err := s.cache.Delete(ctx, s.cache.BuildKeyByID(roomID)); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache delete error")
	}

	if err := s.registry.Broadcast(ctx, roomID, domain.NewLeaveEvent(sender.Username)); err != nil {
		return err
	}
	audit.LogWithDetail(ctx, audit.ActionLeaveRoom, sender.ID, roomID.String(), "announced leave")
	return nil
}

func (s *chatService) getWorkout(ctx context.Context, id domain.ID) (*domain.Workout, error) {
	workout, err := s.gateway.GetWorkout(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrWorkoutNotFound) {
			return nil, domain.Drop(domain.DropWorkoutNotFound, "workout %d", id)
		}
		return nil, err
	}
	return workout, nil
}
