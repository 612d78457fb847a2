package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	req := require.New(t)

	id, err := ParseID("42")
	req.NoError(err)
	req.Equal(ID(42), id)
	req.Equal("42", id.String())

	for _, bad := range []string{"", "abc", "-1", "1.5"} {
		_, err := ParseID(bad)
		req.Error(err, bad)
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	req := require.New(t)

	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}
	req.NoError(json.Unmarshal([]byte(`{"a":1,"b":"2"}`), &v))
	req.Equal(ID(1), v.A)
	req.Equal(ID(2), v.B)

	req.Error(json.Unmarshal([]byte(`{"a":"x"}`), &v))
	req.Error(json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestWorkout_View(t *testing.T) {
	req := require.New(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	w := Workout{ID: 5, Name: "legs", AuthorID: 1, Owners: []ID{1}, DateCreated: created}
	view := w.View()

	req.Equal(WorkoutView{ID: 5, Author: 1, Owners: []ID{1}, Name: "legs", DateCreated: created, Exercises: []ID{}}, view)

	view.Owners[0] = 99
	req.Equal(ID(1), w.Owners[0])

	data, err := json.Marshal(view)
	req.NoError(err)
	req.JSONEq(`{"id":5,"author":1,"owners":[99],"name":"legs","date_created":"2024-03-01T10:00:00Z","exercises":[]}`, string(data))
}

func TestWorkout_IsOwner(t *testing.T) {
	w := Workout{Owners: []ID{1, 2}}
	require.True(t, w.IsOwner(2))
	require.False(t, w.IsOwner(3))
}

func TestRoom_HasParticipant(t *testing.T) {
	r := Room{ID: 1, Name: "general", Participants: []User{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}}}
	require.True(t, r.HasParticipant(2))
	require.False(t, r.HasParticipant(3))
}

func TestNotificationEvent_JSON(t *testing.T) {
	req := require.New(t)
	sent := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	text := "hi"

	data, err := json.Marshal(&NotificationEvent{
		Type:         EventTypeNotification,
		ID:           11,
		Sender:       "alice",
		Message:      &text,
		ChatRoomName: "general",
		ChatRoomID:   3,
		DateSent:     sent,
	})
	req.NoError(err)
	req.JSONEq(`{"type":"notification","id":11,"sender":"alice","message":"hi","chat_room_name":"general","chat_room_id":3,"date_sent":"2024-03-01T10:00:00Z"}`, string(data))
}

func TestSession_Lifecycle(t *testing.T) {
	req := require.New(t)

	s := NewSession("c1")
	req.Equal(StateConnecting, s.State())
	req.False(s.CanReceive())

	_, ok := s.Identity()
	req.False(ok)

	req.ErrorIs(s.Join(1), ErrInvalidTransition)

	req.NoError(s.Authenticate(User{ID: 7, Username: "alice"}))
	req.Equal(StateAuthenticated, s.State())
	req.ErrorIs(s.Authenticate(User{ID: 8}), ErrInvalidTransition)

	req.NoError(s.Join(3))
	req.True(s.CanReceive())
	roomID, joined := s.RoomID()
	req.True(joined)
	req.Equal(ID(3), roomID)

	user, ok := s.Identity()
	req.True(ok)
	req.Equal("alice", user.Username)

	roomID, wasJoined := s.Close()
	req.True(wasJoined)
	req.Equal(ID(3), roomID)
	req.Equal(StateClosed, s.State())
	req.False(s.CanReceive())

	_, wasJoined = s.Close()
	req.False(wasJoined)
}

func TestSession_CloseBeforeJoin(t *testing.T) {
	s := NewSession("c2")
	_, wasJoined := s.Close()
	require.False(t, wasJoined)
	require.ErrorIs(t, s.Authenticate(User{ID: 1}), ErrInvalidTransition)
}
