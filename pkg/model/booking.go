package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// bookingTransitions enumerates every legal move; anything else is rejected
// with an INVALID_TRANSITION error and the record stays untouched.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusAccepted, BookingStatusCancelled},
	BookingStatusAccepted:  {BookingStatusScheduled, BookingStatusCancelled},
	BookingStatusScheduled: {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted: {},
	BookingStatusCancelled: {},
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCashReceipt  PaymentMethod = "cash_receipt"
)

// Instant reports whether the method confirms synchronously. Non-instant
// methods produce a pending invoice that waits for administrator review.
func (m PaymentMethod) Instant() bool {
	return m == PaymentMethodCard || m == PaymentMethodWallet
}

// Booking is one purchase: a single lesson or an enrollment in a group
// course. At most one non-terminal booking exists per (student, lesson) pair.
//
// Lesson title, kind and duration are denormalized at purchase time so
// conflict checks and slot labels never need a join. The installment plan
// computed at purchase is pinned here and reused verbatim for later
// installments, even if the lesson price changes afterwards.
type Booking struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	StudentID     string        `json:"student_id" bson:"student_id" validate:"required,mongodb"`
	TeacherID     string        `json:"teacher_id" bson:"teacher_id" validate:"required,mongodb"`
	LessonID      string        `json:"lesson_id" bson:"lesson_id" validate:"required,mongodb"`
	LessonTitle   string        `json:"lesson_title" bson:"lesson_title" validate:"required,min=2,max=100"`
	LessonKind    LessonKind    `json:"lesson_kind" bson:"lesson_kind" validate:"required,oneof=individual group_course"`
	DurationMin   int           `json:"duration_min" bson:"duration_min" validate:"required,min=5,max=480"`
	AmountCents   int64         `json:"amount_cents" bson:"amount_cents" validate:"required,min=1"`
	PaymentMethod PaymentMethod `json:"payment_method" bson:"payment_method" validate:"required,oneof=card wallet bank_transfer cash_receipt"`
	Status        BookingStatus `json:"status" bson:"status" validate:"required,oneof=pending accepted scheduled completed cancelled"`

	// ScheduledAt is set only for individual lessons in scheduled/completed.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" bson:"scheduled_at,omitempty"`

	// Meeting credentials are present only while an individual booking is
	// scheduled; completion clears them.
	MeetingID      string `json:"meeting_id,omitempty" bson:"meeting_id,omitempty"`
	MeetingJoinURL string `json:"meeting_join_url,omitempty" bson:"meeting_join_url,omitempty"`
	MeetingHostURL string `json:"-" bson:"meeting_host_url,omitempty"`

	// Installment plan snapshot, group courses only.
	IsInstallment          bool  `json:"is_installment" bson:"is_installment"`
	TotalInstallments      int   `json:"total_installments,omitempty" bson:"total_installments,omitempty"`
	SessionsPerInstallment int   `json:"sessions_per_installment,omitempty" bson:"sessions_per_installment,omitempty"`
	InstallmentAmountCents int64 `json:"installment_amount_cents,omitempty" bson:"installment_amount_cents,omitempty"`
	TotalSessions          int   `json:"total_sessions,omitempty" bson:"total_sessions,omitempty"`

	// PaidSessions counts course sessions unlocked so far. Updated only via
	// version-checked increments; never exceeds TotalSessions.
	PaidSessions int   `json:"paid_sessions,omitempty" bson:"paid_sessions"`
	Version      int64 `json:"-" bson:"version"`

	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}
