// Package events defines the lifecycle events the engine emits. External
// systems (notifiers, chat openers, analytics) subscribe to these; the engine
// itself never renders or delivers messages.
package events

import "time"

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingAccepted  = "booking.accepted"
	TypeBookingScheduled = "booking.scheduled"
	TypeBookingCompleted = "booking.completed"
	TypeBookingCancelled = "booking.cancelled"

	TypeInvoicePaid     = "invoice.paid"
	TypeInvoiceRejected = "invoice.rejected"

	TypeSessionsUnlocked = "sessions.unlocked"

	TypeSessionActivated         = "session.activated"
	TypeSessionCompleted         = "session.completed"
	TypeSessionRecordingAttached = "session.recording_attached"
)

// Event is the envelope published for every lifecycle change. Key fields are
// filled per event type; absent ones are omitted from the payload.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	BookingID string `json:"booking_id,omitempty"`
	StudentID string `json:"student_id,omitempty"`
	TeacherID string `json:"teacher_id,omitempty"`
	LessonID  string `json:"lesson_id,omitempty"`
	InvoiceID string `json:"invoice_id,omitempty"`

	BookingStatus string `json:"booking_status,omitempty"`

	SessionNumber    int `json:"session_number,omitempty"`
	PaidSessions     int `json:"paid_sessions,omitempty"`
	SessionsUnlocked int `json:"sessions_unlocked,omitempty"`

	AmountCents int64 `json:"amount_cents,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// Key returns the partition key. Events for the same booking (or lesson, for
// course sessions) stay ordered on one partition.
func (e Event) Key() string {
	if e.BookingID != "" {
		return e.BookingID
	}
	return e.LessonID
}
