package domain

import "time"

// Outbound event types.
const (
	EventTypeMessage      = "message"
	EventTypeWorkout      = "workout"
	EventTypeConfirmation = "confirmation"
	EventTypeNotification = "notification"
	EventTypeLeave        = "leave"
	EventTypePong         = "pong"
)

// Event is a server to client frame. Implementations marshal to a JSON object
// whose "type" equals EventType.
type Event interface {
	EventType() string
}

type ChatMessageEvent struct {
	Type     string    `json:"type"`
	Content  string    `json:"content"`
	Sender   ID        `json:"sender"`
	DateSent time.Time `json:"date_sent"`
}

func NewChatMessageEvent(m Message) *ChatMessageEvent {
	return &ChatMessageEvent{
		Type:     EventTypeMessage,
		Content:  m.Content,
		Sender:   m.SenderID,
		DateSent: m.DateSent,
	}
}

type WorkoutMessageEvent struct {
	Type    string      `json:"type"`
	Workout WorkoutView `json:"workout"`
	Sender  ID          `json:"sender"`
}

func NewWorkoutMessageEvent(view WorkoutView, sender ID) *WorkoutMessageEvent {
	return &WorkoutMessageEvent{Type: EventTypeWorkout, Workout: view, Sender: sender}
}

type ConfirmationEvent struct {
	Type           string      `json:"type"`
	Workout        WorkoutView `json:"workout"`
	AddedToWorkout string      `json:"added_to_workout"`
}

func NewConfirmationEvent(view WorkoutView, username string) *ConfirmationEvent {
	return &ConfirmationEvent{Type: EventTypeConfirmation, Workout: view, AddedToWorkout: username}
}

// NotificationEvent tells connected clients to refresh their notification
// badge. ID is the last notification created for the fan-out, or 0 when
// nobody else participates in the room.
type NotificationEvent struct {
	Type         string       `json:"type"`
	ID           ID           `json:"id"`
	Sender       string       `json:"sender"`
	Message      *string      `json:"message,omitempty"`
	Workout      *WorkoutView `json:"workout,omitempty"`
	ChatRoomName string       `json:"chat_room_name"`
	ChatRoomID   ID           `json:"chat_room_id"`
	DateSent     time.Time    `json:"date_sent"`
}

type LeaveEvent struct {
	Type             string `json:"type"`
	LeftTheGroupChat string `json:"left_the_group_chat"`
}

func NewLeaveEvent(username string) *LeaveEvent {
	return &LeaveEvent{Type: EventTypeLeave, LeftTheGroupChat: username}
}

type PongEvent struct {
	Type string `json:"type"`
}

func NewPongEvent() *PongEvent {
	return &PongEvent{Type: EventTypePong}
}

func (*ChatMessageEvent) EventType() string    { return EventTypeMessage }
func (*WorkoutMessageEvent) EventType() string { return EventTypeWorkout }
func (*ConfirmationEvent) EventType() string   { return EventTypeConfirmation }
func (*NotificationEvent) EventType() string   { return EventTypeNotification }
func (*LeaveEvent) EventType() string          { return EventTypeLeave }
func (*PongEvent) EventType() string           { return EventTypePong }
