package errors

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")

	ErrInvoiceNotFound = errors.New("invoice not found")

	ErrInstallmentNotFound = errors.New("installment not found")

	ErrLessonNotFound = errors.New("lesson not found")

	ErrInvalidID = errors.New("invalid ID format")

	// ErrStaleVersion means the booking's paid-session counter moved under us.
	ErrStaleVersion = errors.New("booking modified concurrently")

	ErrStaleStatus = errors.New("status changed concurrently")
)
