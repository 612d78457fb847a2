package domain

import (
	"errors"
	"fmt"
)

// DropReason says why an inbound frame was discarded without effect.
type DropReason string

const (
	DropMalformed        DropReason = "malformed"
	DropNotJoined        DropReason = "not_joined"
	DropNoIdentity       DropReason = "no_identity"
	DropEmptyMessage     DropReason = "empty_message"
	DropMissingWorkoutID DropReason = "missing_workout_id"
	DropWorkoutNotFound  DropReason = "workout_not_found"
	DropMissingUserID    DropReason = "missing_user_id"
	DropUserNotFound     DropReason = "user_not_found"
	DropAlreadyOwner     DropReason = "already_owner"
	DropNotSelf          DropReason = "not_self"
	DropNotParticipant   DropReason = "not_participant"
)

// DropError is returned by frame handlers for expected per-message failures.
// It is logged and never sent back to the client.
type DropError struct {
	Reason DropReason
	Detail string
}

func (e *DropError) Error() string {
	if e.Detail == "" {
		return "frame dropped: " + string(e.Reason)
	}
	return fmt.Sprintf("frame dropped: %s: %s", e.Reason, e.Detail)
}

func Drop(reason DropReason, format string, args ...any) *DropError {
	return &DropError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// AsDrop reports whether err is, or wraps, a DropError.
func AsDrop(err error) (*DropError, bool) {
	var de *DropError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
