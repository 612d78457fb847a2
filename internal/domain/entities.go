package domain

import (
	"slices"
	"time"

	"github.com/samber/lo"
)

type User struct {
	ID       ID
	Username string
}

// Room is a named chat channel with a persistent participant list.
// Participation is independent of live connections.
type Room struct {
	ID           ID
	Name         string
	Participants []User
}

func (r Room) HasParticipant(userID ID) bool {
	return lo.ContainsBy(r.Participants, func(u User) bool { return u.ID == userID })
}

type Workout struct {
	ID          ID
	Name        string
	AuthorID    ID
	Owners      []ID
	Exercises   []ID
	DateCreated time.Time
}

func (w Workout) IsOwner(userID ID) bool {
	return lo.Contains(w.Owners, userID)
}

// WorkoutView is the canonical wire representation of a workout.
type WorkoutView struct {
	ID          ID        `json:"id"`
	Author      ID        `json:"author"`
	Owners      []ID      `json:"owners"`
	Name        string    `json:"name"`
	DateCreated time.Time `json:"date_created"`
	Exercises   []ID      `json:"exercises"`
}

// View serializes the workout. Slices are copied and never nil so the wire
// form always carries arrays.
func (w Workout) View() WorkoutView {
	owners := slices.Clone(w.Owners)
	if owners == nil {
		owners = []ID{}
	}
	exercises := slices.Clone(w.Exercises)
	if exercises == nil {
		exercises = []ID{}
	}
	return WorkoutView{
		ID:          w.ID,
		Author:      w.AuthorID,
		Owners:      owners,
		Name:        w.Name,
		DateCreated: w.DateCreated,
		Exercises:   exercises,
	}
}

type Message struct {
	ID       ID
	SenderID ID
	RoomID   ID
	Content  string
	DateSent time.Time
}

type SharedWorkoutMessage struct {
	ID        ID
	SenderID  ID
	RoomID    ID
	WorkoutID ID
	DateSent  time.Time
}

// NotificationBody is the informative part of a notification: a chat text,
// a shared workout, or both.
type NotificationBody struct {
	Message *string
	Workout *WorkoutView
}

func TextBody(text string) NotificationBody {
	return NotificationBody{Message: &text}
}

func WorkoutBody(view WorkoutView) NotificationBody {
	return NotificationBody{Workout: &view}
}

// Notification is one recipient's record of activity in a room. RoomName is
// a snapshot taken at creation.
type Notification struct {
	ID          ID
	RecipientID ID
	SenderID    ID
	SenderName  string
	RoomID      ID
	RoomName    string
	NotificationBody
	DateSent time.Time
}
