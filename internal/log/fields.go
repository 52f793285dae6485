package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldUserID    = "user_id"
	FieldCourseID  = "course_id"
	FieldLessonID  = "lesson_id"
	FieldPurchase  = "purchase_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Playback fields
	FieldEngine      = "engine"
	FieldManifestURL = "manifest_url"
	FieldVideoRef    = "video_ref"
	FieldErrorClass  = "error_class"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldStage    = "stage"

	// Scheduling fields
	FieldDaysDiff    = "days_diff"
	FieldLessonIndex = "lesson_index"
)
