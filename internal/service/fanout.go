package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/fitlink/chat-broker/internal/domain"
)

// fanOut records one notification for every participant of the room except
// the sender, then tells the whole room. Rows are written one at a time; a
// failure leaves the rows already written in place.
func (s *chatService) fanOut(ctx context.Context, sender domain.User, roomID domain.ID, body domain.NotificationBody) error {
	room, err := s.gateway.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("fan-out: %w", err)
	}

	recipients := lo.Filter(room.Participants, func(u domain.User, _ int) bool {
		return u.ID != sender.ID
	})

	var last *domain.Notification
	for _, r := range recipients {
		n := &domain.Notification{
			RecipientID:      r.ID,
			SenderID:         sender.ID,
			SenderName:       sender.Username,
			RoomID:           room.ID,
			RoomName:         room.Name,
			NotificationBody: body,
		}
		if err := s.gateway.CreateNotification(ctx, n); err != nil {
			return fmt.Errorf("fan-out to user %d: %w", r.ID, err)
		}
		last = n
	}

	event := &domain.NotificationEvent{
		Type:         domain.EventTypeNotification,
		Sender:       sender.Username,
		Message:      body.Message,
		Workout:      body.Workout,
		ChatRoomName: room.Name,
		ChatRoomID:   room.ID,
		DateSent:     s.now(),
	}
	if last != nil {
		event.ID = last.ID
		if !last.DateSent.IsZero() {
			event.DateSent = last.DateSent
		}
	}
	return s.registry.Broadcast(ctx, room.ID, event)
}
