package audit

import (
	"context"

	"github.com/fitlink/chat-broker/internal/domain"
	"github.com/fitlink/chat-broker/pkg/log"
)

// Audit actions for the chat broker.
const (
	ActionConnect        = "chat.connect"
	ActionAuthFailed     = "chat.auth_failed"
	ActionJoinRoom       = "chat.join_room"
	ActionSendMessage    = "chat.send_message"
	ActionShareWorkout   = "chat.share_workout"
	ActionConfirmWorkout = "chat.confirm_workout"
	ActionLeaveRoom      = "chat.leave_room"
	ActionDisconnect     = "chat.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID domain.ID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint64(log.FieldUserID, uint64(userID)).
		Msg(msg)
}

// LogTarget emits an audit entry about an entity other than the actor.
func LogTarget(ctx context.Context, action string, userID, targetID domain.ID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint64(log.FieldUserID, uint64(userID)).
		Uint64(FieldTargetID, uint64(targetID)).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID domain.ID, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Uint64(log.FieldUserID, uint64(userID)).
		Str(FieldDetail, detail).
		Msg(msg)
}
