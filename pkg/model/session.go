package model

import "time"

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// sessionTransitions is strictly linear: pending -> active -> completed.
// There is no cancellation state; a session that never happens stays pending.
var sessionTransitions = map[SessionStatus]SessionStatus{
	SessionStatusPending: SessionStatusActive,
	SessionStatusActive:  SessionStatusCompleted,
}

func (s SessionStatus) CanTransitionTo(to SessionStatus) bool {
	return sessionTransitions[s] == to
}

// CourseSession is one planned occurrence of a multi-session group course.
// SessionNumber is 1-based and contiguous per lesson; rows are generated when
// the course is created and scheduled later. TeacherID and DurationMin are
// denormalized from the lesson for conflict checks.
type CourseSession struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	LessonID      string        `json:"lesson_id" bson:"lesson_id" validate:"required,mongodb"`
	LessonTitle   string        `json:"lesson_title" bson:"lesson_title" validate:"required,min=2,max=100"`
	TeacherID     string        `json:"teacher_id" bson:"teacher_id" validate:"required,mongodb"`
	SessionNumber int           `json:"session_number" bson:"session_number" validate:"required,min=1"`
	DurationMin   int           `json:"duration_min" bson:"duration_min" validate:"required,min=5,max=480"`
	ScheduledAt   *time.Time    `json:"scheduled_at,omitempty" bson:"scheduled_at,omitempty"`
	Status        SessionStatus `json:"status" bson:"status" validate:"required,oneof=pending active completed"`

	// LessonActive mirrors the lesson's active flag so slot queries can
	// skip sessions of a deactivated course without a join. Kept in sync
	// by the lesson service.
	LessonActive bool `json:"-" bson:"lesson_active"`

	// Meeting credentials exist only while the session is active.
	MeetingID      string `json:"meeting_id,omitempty" bson:"meeting_id,omitempty"`
	MeetingJoinURL string `json:"meeting_join_url,omitempty" bson:"meeting_join_url,omitempty"`
	MeetingHostURL string `json:"-" bson:"meeting_host_url,omitempty"`

	// RecordingURL may be attached only once the session is completed;
	// re-upload overwrites.
	RecordingURL string `json:"recording_url,omitempty" bson:"recording_url,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// SessionView is what an enrolled student sees. Locked sessions (number above
// the booking's paid-session count) are redacted at this boundary regardless
// of the session's own status.
type SessionView struct {
	SessionNumber  int           `json:"session_number"`
	Status         SessionStatus `json:"status"`
	ScheduledAt    *time.Time    `json:"scheduled_at,omitempty"`
	Locked         bool          `json:"locked"`
	MeetingJoinURL string        `json:"meeting_join_url,omitempty"`
	RecordingURL   string        `json:"recording_url,omitempty"`
}
