package model

import "time"

type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "pending"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusRejected InvoiceStatus = "rejected"
)

// Invoice is one financial record tied to a booking; group courses may carry
// several, one per installment. A pending invoice is a manual-payment
// submission awaiting administrator review; paid and rejected are terminal.
//
// ExternalRef carries the payment provider's reference (or the receipt
// upload's id for manual methods) and deduplicates replayed confirmations.
type Invoice struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingID     string        `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	AmountCents   int64         `json:"amount_cents" bson:"amount_cents" validate:"required,min=1"`
	PaymentMethod PaymentMethod `json:"payment_method" bson:"payment_method" validate:"required,oneof=card wallet bank_transfer cash_receipt"`
	Status        InvoiceStatus `json:"status" bson:"status" validate:"required,oneof=pending paid rejected"`
	ExternalRef   string        `json:"external_ref" bson:"external_ref" validate:"required,min=1,max=200"`
	ReceiptRef    string        `json:"receipt_ref,omitempty" bson:"receipt_ref,omitempty" validate:"omitempty,max=500"`

	// Initiating marks the invoice that created the booking. Rejecting it
	// cancels the booking; rejecting a later installment does not.
	Initiating bool `json:"initiating" bson:"initiating"`

	// AdminNotes is required when the invoice is rejected.
	AdminNotes string `json:"admin_notes,omitempty" bson:"admin_notes,omitempty" validate:"omitempty,max=1000"`

	CreatedAt time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty" bson:"decided_at,omitempty"`
}
