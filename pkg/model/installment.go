package model

import "time"

type InstallmentStatus string

const (
	InstallmentStatusPending  InstallmentStatus = "pending"
	InstallmentStatusPaid     InstallmentStatus = "paid"
	InstallmentStatusRejected InstallmentStatus = "rejected"
)

// Installment is one payment milestone of a course purchase. Installment #1
// is implicit in the initiating purchase; stored rows start at #2. A rejected
// row is retryable: a new row with the same number may be submitted.
type Installment struct {
	ID               string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingID        string            `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	InvoiceID        string            `json:"invoice_id" bson:"invoice_id" validate:"required,mongodb"`
	Number           int               `json:"number" bson:"number" validate:"required,min=2"`
	AmountCents      int64             `json:"amount_cents" bson:"amount_cents" validate:"required,min=1"`
	SessionsUnlocked int               `json:"sessions_unlocked" bson:"sessions_unlocked" validate:"min=0"`
	Status           InstallmentStatus `json:"status" bson:"status" validate:"required,oneof=pending paid rejected"`
	PaidAt           *time.Time        `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
}
