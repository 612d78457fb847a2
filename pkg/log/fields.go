package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Connection
	FieldClientID   = "client_id"
	FieldRoomID     = "room_id"
	FieldEventType  = "event_type"
	FieldDropReason = "drop_reason"
	FieldDelivered  = "delivered"
	FieldDropped    = "dropped"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
