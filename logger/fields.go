package logger

// Standard field names for consistent logging.
const (
	FieldService      = "service"
	FieldOperation    = "operation"
	FieldError        = "error"
	FieldUserID       = "user_id"
	FieldBookingID    = "booking_id"
	FieldRequestID    = "request_id"
	FieldAction       = "action"
	FieldState        = "state"
	FieldAttempt      = "attempt"
	FieldStorageKey   = "storage_key"
	FieldStatusCode   = "status_code"
	FieldPath         = "path"
	FieldMethod       = "method"
	FieldMessageCount = "message_count"
)
