package model

import "time"

type LessonKind string

const (
	LessonKindIndividual  LessonKind = "individual"
	LessonKindGroupCourse LessonKind = "group_course"
)

// Lesson is a teacher's sellable product: a single lesson or a multi-session
// group course. Duration and price are denormalized onto bookings and course
// sessions at purchase/planning time.
type Lesson struct {
	ID            string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TeacherID     string     `json:"teacher_id" bson:"teacher_id" validate:"required,mongodb"`
	Title         string     `json:"title" bson:"title" validate:"required,min=2,max=100"`
	Kind          LessonKind `json:"kind" bson:"kind" validate:"required,oneof=individual group_course"`
	DurationMin   int        `json:"duration_min" bson:"duration_min" validate:"required,min=5,max=480"`
	TotalSessions int        `json:"total_sessions,omitempty" bson:"total_sessions" validate:"omitempty,min=1,max=50"`
	PriceCents    int64      `json:"price_cents" bson:"price_cents" validate:"required,min=1"`
	Active        bool       `json:"active" bson:"active"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type LessonUpdate struct {
	Title       string `json:"title,omitempty" validate:"omitempty,min=2,max=100"`
	DurationMin *int   `json:"duration_min,omitempty" validate:"omitempty,min=5,max=480"`
	PriceCents  *int64 `json:"price_cents,omitempty" validate:"omitempty,min=1"`
	Active      *bool  `json:"active,omitempty"`
}
