package domain

import (
	"bytes"
	"encoding/json"
)

// Inbound frame types.
const (
	FrameTypeMessage      = "message"
	FrameTypeWorkout      = "workout"
	FrameTypeConfirmation = "confirmation"
	FrameTypeLeave        = "leave"
	FrameTypePing         = "ping"
)

// Frame is one decoded inbound payload. The set of implementations is closed:
// ChatText, SharedWorkout, OwnershipConfirmation, LeaveRoom, Ping and
// UnknownFrame.
type Frame interface {
	FrameType() string
	isFrame()
}

// ChatText carries free text. Message is empty when the field was absent.
type ChatText struct {
	Message string
}

// SharedWorkout references a workout by id. WorkoutID is nil when absent.
type SharedWorkout struct {
	WorkoutID *ID
}

type OwnershipConfirmation struct {
	WorkoutID *ID
	UserID    *ID
}

// LeaveRoom announces that the sender is leaving the room. A nil UserID
// means the sender.
type LeaveRoom struct {
	UserID *ID
}

type Ping struct{}

// UnknownFrame has a type nobody handles. It keeps the message field so the
// router can treat it as chat text.
type UnknownFrame struct {
	Type    string
	Message string
}

func (ChatText) FrameType() string              { return FrameTypeMessage }
func (SharedWorkout) FrameType() string         { return FrameTypeWorkout }
func (OwnershipConfirmation) FrameType() string { return FrameTypeConfirmation }
func (LeaveRoom) FrameType() string             { return FrameTypeLeave }
func (Ping) FrameType() string                  { return FrameTypePing }
func (f UnknownFrame) FrameType() string        { return f.Type }

func (ChatText) isFrame()              {}
func (SharedWorkout) isFrame()         {}
func (OwnershipConfirmation) isFrame() {}
func (LeaveRoom) isFrame()             {}
func (Ping) isFrame()                  {}
func (UnknownFrame) isFrame()          {}

type frameHeader struct {
	Type *string `json:"type"`
}

type textPayload struct {
	Message *string `json:"message"`
}

type workoutPayload struct {
	Workout *struct {
		ID *ID `json:"id"`
	} `json:"workout"`
}

type confirmationPayload struct {
	WorkoutID *ID `json:"workout_id"`
	UserID    *ID `json:"user_id"`
}

type leavePayload struct {
	UserID *ID `json:"user_id"`
}

// DecodeFrame parses a raw frame. The payload must be a JSON object; a missing
// type means chat text. Errors are always *DropError with DropMalformed.
func DecodeFrame(data []byte) (Frame, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, Drop(DropMalformed, "frame is not a JSON object")
	}

	var header frameHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, Drop(DropMalformed, "decode frame: %v", err)
	}

	frameType := FrameTypeMessage
	if header.Type != nil {
		frameType = *header.Type
	}

	switch frameType {
	case FrameTypeMessage:
		text, err := decodeText(data)
		if err != nil {
			return nil, err
		}
		return ChatText{Message: text}, nil

	case FrameTypeWorkout:
		var p workoutPayload
		if err := decodePayload(data, frameType, &p); err != nil {
			return nil, err
		}
		f := SharedWorkout{}
		if p.Workout != nil {
			f.WorkoutID = p.Workout.ID
		}
		return f, nil

	case FrameTypeConfirmation:
		var p confirmationPayload
		if err := decodePayload(data, frameType, &p); err != nil {
			return nil, err
		}
		return OwnershipConfirmation{WorkoutID: p.WorkoutID, UserID: p.UserID}, nil

	case FrameTypeLeave:
		var p leavePayload
		if err := decodePayload(data, frameType, &p); err != nil {
			return nil, err
		}
		return LeaveRoom{UserID: p.UserID}, nil

	case FrameTypePing:
		return Ping{}, nil

	default:
		text, err := decodeText(data)
		if err != nil {
			return nil, err
		}
		return UnknownFrame{Type: frameType, Message: text}, nil
	}
}

func decodeText(data []byte) (string, error) {
	var p textPayload
	if err := decodePayload(data, FrameTypeMessage, &p); err != nil {
		return "", err
	}
	if p.Message == nil {
		return "", nil
	}
	return *p.Message, nil
}

func decodePayload(data []byte, frameType string, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return Drop(DropMalformed, "decode %s frame: %v", frameType, err)
	}
	return nil
}
