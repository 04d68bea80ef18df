package service

import (
	"context"
	"errors"
	"strings"

	billingerrors "tutorhub/internal/billing/errors"
	"tutorhub/internal/billing/repository"
	"tutorhub/internal/billing/validator"
	bookingsvalidator "tutorhub/internal/bookings/validator"
	"tutorhub/pkg/config"
	apperrors "tutorhub/pkg/errors"
	"tutorhub/pkg/events"
	"tutorhub/pkg/installment"
	"tutorhub/pkg/model"
	"tutorhub/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// PurchaseRequest starts a booking: the student buys a lesson or enrolls in
// a group course. ExternalRef is the payment provider's reference and makes
// replays idempotent.
type PurchaseRequest struct {
	StudentID     string              `json:"student_id"`
	LessonID      string              `json:"lesson_id"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	ExternalRef   string              `json:"external_ref"`
	ReceiptRef    string              `json:"receipt_ref,omitempty"`
}

type InstallmentRequest struct {
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	ExternalRef   string              `json:"external_ref"`
	ReceiptRef    string              `json:"receipt_ref,omitempty"`
}

type PurchaseResult struct {
	Booking *model.Booking    `json:"booking"`
	Invoice *model.Invoice    `json:"invoice"`
	Plan    *installment.Plan `json:"plan,omitempty"`
}

type BillingService interface {
	RecordPurchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error)
	SubmitInstallment(ctx context.Context, bookingID string, req *InstallmentRequest) (*model.Invoice, error)

	// ApproveInvoice marks a pending invoice paid and unlocks the sessions it
	// covers. Approving an already paid invoice is a no-op.
	ApproveInvoice(ctx context.Context, invoiceID string) error

	// RejectInvoice declines a pending invoice with mandatory notes. The
	// initiating invoice cancels its booking; a later installment leaves the
	// booking and already unlocked sessions untouched.
	RejectInvoice(ctx context.Context, invoiceID string, notes string) error

	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)
	GetInstallments(ctx context.Context, bookingID string) ([]*model.Installment, error)
}

type billingService struct {
	bookings     repository.BookingRepository
	invoices     repository.InvoiceRepository
	installments repository.InstallmentRepository
	lessons      repository.LessonReader

	bookingValidator *bookingsvalidator.BookingValidator
	invoiceValidator *validator.InvoiceValidator

	events events.Publisher
	cfg    *config.Config
}

func NewBillingService(
	bookings repository.BookingRepository,
	invoices repository.InvoiceRepository,
	installments repository.InstallmentRepository,
	lessons repository.LessonReader,
	bookingValidator *bookingsvalidator.BookingValidator,
	invoiceValidator *validator.InvoiceValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BillingService {
	return &billingService{
		bookings:         bookings,
		invoices:         invoices,
		installments:     installments,
		lessons:          lessons,
		bookingValidator: bookingValidator,
		invoiceValidator: invoiceValidator,
		events:           publisher,
		cfg:              cfg,
	}
}

func (s *billingService) RecordPurchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error) {
	req.ExternalRef = strings.TrimSpace(req.ExternalRef)
	req.ReceiptRef = strings.TrimSpace(req.ReceiptRef)
	if req.ExternalRef == "" {
		return nil, apperrors.InvalidInput("external_ref is required")
	}

	// A replayed confirmation returns the original result.
	if existing, err := s.invoices.FindByExternalRef(ctx, req.ExternalRef); err == nil {
		booking, err := s.bookings.FindByID(ctx, existing.BookingID)
		if err != nil {
			return nil, apperrors.Internal("Failed to load booking for replayed purchase", err)
		}
		return &PurchaseResult{Booking: booking, Invoice: existing, Plan: planFromBooking(booking)}, nil
	} else if !errors.Is(err, billingerrors.ErrInvoiceNotFound) {
		return nil, apperrors.Internal("Failed to check for duplicate purchase", err)
	}

	lesson, err := s.lessons.FindLessonByID(ctx, req.LessonID)
	if err != nil {
		if errors.Is(err, billingerrors.ErrLessonNotFound) {
			return nil, apperrors.NotFoundWithID("Lesson", req.LessonID)
		}
		if errors.Is(err, billingerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid lesson ID format")
		}
		return nil, apperrors.Internal("Failed to load lesson", err)
	}
	if !lesson.Active {
		return nil, apperrors.Conflict("Lesson is not available for purchase")
	}

	if _, err := s.bookings.FindActiveByStudentAndLesson(ctx, req.StudentID, req.LessonID); err == nil {
		return nil, apperrors.Conflict("Student already has an active booking for this lesson")
	} else if !errors.Is(err, billingerrors.ErrBookingNotFound) {
		return nil, apperrors.Internal("Failed to check existing bookings", err)
	}

	totalSessions := 1
	var plan *installment.Plan
	if lesson.Kind == model.LessonKindGroupCourse {
		totalSessions = lesson.TotalSessions
		plan, err = installment.Compute(totalSessions, lesson.PriceCents)
		if err != nil {
			return nil, err
		}
	}

	instant := req.PaymentMethod.Instant()

	// An instant payment settles on the spot, so the booking skips pending:
	// an individual lesson is accepted awaiting a slot, a group course is
	// already scheduled through its session calendar. Manual methods stay
	// pending until an admin approves the invoice.
	status := model.BookingStatusPending
	if instant {
		status = model.BookingStatusAccepted
		if lesson.Kind == model.LessonKindGroupCourse {
			status = model.BookingStatusScheduled
		}
	}

	booking := &model.Booking{
		StudentID:     req.StudentID,
		TeacherID:     lesson.TeacherID,
		LessonID:      lesson.ID,
		LessonTitle:   lesson.Title,
		LessonKind:    lesson.Kind,
		DurationMin:   lesson.DurationMin,
		AmountCents:   lesson.PriceCents,
		PaymentMethod: req.PaymentMethod,
		Status:        status,
		TotalSessions: totalSessions,
	}
	if plan != nil {
		booking.IsInstallment = true
		booking.TotalInstallments = plan.Installments
		booking.SessionsPerInstallment = plan.SessionsPerInstallment
		booking.InstallmentAmountCents = plan.AmountPerInstallment
	}
	if err := s.validateBooking(booking); err != nil {
		return nil, err
	}

	firstAmount := lesson.PriceCents
	if plan != nil {
		firstAmount = plan.AmountPerInstallment
	}
	invoice := &model.Invoice{
		AmountCents:   firstAmount,
		PaymentMethod: req.PaymentMethod,
		Status:        model.InvoiceStatusPending,
		ExternalRef:   req.ExternalRef,
		ReceiptRef:    req.ReceiptRef,
		Initiating:    true,
	}

	firstUnlock := totalSessions
	if plan != nil {
		firstUnlock = plan.SessionsUnlockedBy(1)
	}

	err = s.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.bookings.Create(sessCtx, booking); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return apperrors.Conflict("Student already has an active booking for this lesson")
			}
			return apperrors.Internal("Failed to create booking", err)
		}

		invoice.BookingID = booking.ID
		if err := s.validateInvoice(invoice); err != nil {
			return err
		}
		if _, err := s.invoices.Create(sessCtx, invoice); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return apperrors.Conflict("A payment with this external reference was already recorded")
			}
			return apperrors.Internal("Failed to create invoice", err)
		}

		if instant {
			if err := s.invoices.MarkPaid(sessCtx, invoice.ID); err != nil {
				return apperrors.Internal("Failed to settle instant invoice", err)
			}
			if err := s.bookings.IncrementPaidSessions(sessCtx, booking.ID, booking.Version, firstUnlock); err != nil {
				return apperrors.Internal("Failed to unlock sessions", err)
			}
			invoice.Status = model.InvoiceStatusPaid
			booking.PaidSessions = firstUnlock
		}

		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to record purchase",
			"student_id", req.StudentID,
			"lesson_id", req.LessonID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Purchase recorded",
		"booking_id", booking.ID,
		"invoice_id", invoice.ID,
		"payment_method", req.PaymentMethod,
		"instant", instant,
	)

	s.publish(ctx, events.Event{
		Type:          events.TypeBookingCreated,
		BookingID:     booking.ID,
		StudentID:     booking.StudentID,
		TeacherID:     booking.TeacherID,
		LessonID:      booking.LessonID,
		InvoiceID:     invoice.ID,
		BookingStatus: string(booking.Status),
		AmountCents:   booking.AmountCents,
	})
	if instant {
		s.publishPaid(ctx, invoice, booking, firstUnlock, booking.PaidSessions)
	}

	return &PurchaseResult{Booking: booking, Invoice: invoice, Plan: plan}, nil
}

func (s *billingService) SubmitInstallment(ctx context.Context, bookingID string, req *InstallmentRequest) (*model.Invoice, error) {
	req.ExternalRef = strings.TrimSpace(req.ExternalRef)
	req.ReceiptRef = strings.TrimSpace(req.ReceiptRef)
	if req.ExternalRef == "" {
		return nil, apperrors.InvalidInput("external_ref is required")
	}

	if existing, err := s.invoices.FindByExternalRef(ctx, req.ExternalRef); err == nil {
		return existing, nil
	} else if !errors.Is(err, billingerrors.ErrInvoiceNotFound) {
		return nil, apperrors.Internal("Failed to check for duplicate installment", err)
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsInstallment {
		return nil, apperrors.InvalidInput("Booking has no installment plan")
	}
	if booking.Status.Terminal() {
		return nil, apperrors.Conflict("Booking is no longer active")
	}

	count, err := s.installments.CountNonRejected(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("Failed to count installments", err)
	}

	// Installment #1 was collected with the purchase; rows start at #2.
	number := int(count) + 2
	if number > booking.TotalInstallments {
		return nil, apperrors.Conflict("All installments have already been submitted")
	}

	plan := planFromBooking(booking)
	unlock := plan.SessionsUnlockedBy(number)

	invoice := &model.Invoice{
		BookingID:     booking.ID,
		AmountCents:   booking.InstallmentAmountCents,
		PaymentMethod: req.PaymentMethod,
		Status:        model.InvoiceStatusPending,
		ExternalRef:   req.ExternalRef,
		ReceiptRef:    req.ReceiptRef,
	}
	if err := s.validateInvoice(invoice); err != nil {
		return nil, err
	}

	instant := req.PaymentMethod.Instant()

	var row *model.Installment
	err = s.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.invoices.Create(sessCtx, invoice); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return apperrors.Conflict("A payment with this external reference was already recorded")
			}
			return apperrors.Internal("Failed to create invoice", err)
		}

		row = &model.Installment{
			BookingID:        booking.ID,
			InvoiceID:        invoice.ID,
			Number:           number,
			AmountCents:      booking.InstallmentAmountCents,
			SessionsUnlocked: unlock,
			Status:           model.InstallmentStatusPending,
		}
		if _, err := s.installments.Create(sessCtx, row); err != nil {
			return apperrors.Internal("Failed to create installment", err)
		}

		if instant {
			if err := s.invoices.MarkPaid(sessCtx, invoice.ID); err != nil {
				return apperrors.Internal("Failed to settle instant invoice", err)
			}
			if err := s.installments.MarkPaid(sessCtx, row.ID); err != nil {
				return apperrors.Internal("Failed to settle installment", err)
			}
			if err := s.bookings.IncrementPaidSessions(sessCtx, booking.ID, booking.Version, unlock); err != nil {
				if errors.Is(err, billingerrors.ErrStaleVersion) {
					return apperrors.ConcurrentModification("booking")
				}
				return apperrors.Internal("Failed to unlock sessions", err)
			}
			invoice.Status = model.InvoiceStatusPaid
			row.Status = model.InstallmentStatusPaid
		}

		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to submit installment", "booking_id", bookingID, "number", number, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Installment submitted",
		"booking_id", booking.ID,
		"invoice_id", invoice.ID,
		"number", number,
		"instant", instant,
	)

	if instant {
		s.publishPaid(ctx, invoice, booking, unlock, booking.PaidSessions+unlock)
	}

	return invoice, nil
}

func (s *billingService) ApproveInvoice(ctx context.Context, invoiceID string) error {
	invoice, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}

	switch invoice.Status {
	case model.InvoiceStatusPaid:
		// Replayed approval, nothing left to do.
		return nil
	case model.InvoiceStatusRejected:
		return apperrors.Conflict("Invoice was already rejected")
	}

	booking, err := s.getBooking(ctx, invoice.BookingID)
	if err != nil {
		return err
	}
	if booking.Status.Terminal() {
		return apperrors.Conflict("Booking is no longer active")
	}

	unlock := booking.TotalSessions
	var row *model.Installment
	if invoice.Initiating {
		if booking.IsInstallment {
			unlock = planFromBooking(booking).SessionsUnlockedBy(1)
		}
	} else {
		row, err = s.installments.FindByInvoice(ctx, invoice.ID)
		if err != nil {
			return apperrors.Internal("Failed to load installment for invoice", err)
		}
		unlock = row.SessionsUnlocked
	}

	// Approving the initiating invoice is what accepts a pending booking.
	acceptBooking := invoice.Initiating && booking.Status == model.BookingStatusPending

	err = s.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.invoices.MarkPaid(sessCtx, invoice.ID); err != nil {
			if errors.Is(err, billingerrors.ErrStaleStatus) {
				return apperrors.ConcurrentModification("invoice")
			}
			return apperrors.Internal("Failed to mark invoice paid", err)
		}
		if row != nil {
			if err := s.installments.MarkPaid(sessCtx, row.ID); err != nil {
				return apperrors.Internal("Failed to mark installment paid", err)
			}
		}
		if acceptBooking {
			err := s.bookings.Transition(sessCtx, booking.ID, model.BookingStatusPending, model.BookingStatusAccepted)
			if err != nil {
				if errors.Is(err, billingerrors.ErrStaleStatus) {
					return apperrors.ConcurrentModification("booking")
				}
				return apperrors.Internal("Failed to accept booking", err)
			}
		}
		if err := s.bookings.IncrementPaidSessions(sessCtx, booking.ID, booking.Version, unlock); err != nil {
			if errors.Is(err, billingerrors.ErrStaleVersion) {
				return apperrors.ConcurrentModification("booking")
			}
			return apperrors.Internal("Failed to unlock sessions", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to approve invoice", "invoice_id", invoiceID, "error", err)
		return err
	}
	if acceptBooking {
		booking.Status = model.BookingStatusAccepted
	}

	s.cfg.Log.Info("Invoice approved",
		"invoice_id", invoice.ID,
		"booking_id", booking.ID,
		"sessions_unlocked", unlock,
	)

	if acceptBooking {
		s.publish(ctx, events.Event{
			Type:          events.TypeBookingAccepted,
			BookingID:     booking.ID,
			StudentID:     booking.StudentID,
			TeacherID:     booking.TeacherID,
			LessonID:      booking.LessonID,
			InvoiceID:     invoice.ID,
			BookingStatus: string(booking.Status),
		})
	}
	s.publishPaid(ctx, invoice, booking, unlock, booking.PaidSessions+unlock)

	return nil
}

func (s *billingService) RejectInvoice(ctx context.Context, invoiceID string, notes string) error {
	notes = sanitizer.NormalizeNotes(notes)
	if notes == "" {
		return apperrors.MissingReason()
	}

	invoice, err := s.getInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}

	switch invoice.Status {
	case model.InvoiceStatusRejected:
		return nil
	case model.InvoiceStatusPaid:
		return apperrors.Conflict("Invoice was already paid")
	}

	var row *model.Installment
	if !invoice.Initiating {
		row, err = s.installments.FindByInvoice(ctx, invoice.ID)
		if err != nil {
			return apperrors.Internal("Failed to load installment for invoice", err)
		}
	}

	err = s.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.invoices.MarkRejected(sessCtx, invoice.ID, notes); err != nil {
			if errors.Is(err, billingerrors.ErrStaleStatus) {
				return apperrors.ConcurrentModification("invoice")
			}
			return apperrors.Internal("Failed to mark invoice rejected", err)
		}

		if invoice.Initiating {
			if err := s.bookings.CancelActive(sessCtx, invoice.BookingID); err != nil {
				// The booking may already be terminal; the rejection stands.
				if !errors.Is(err, billingerrors.ErrStaleStatus) {
					return apperrors.Internal("Failed to cancel booking", err)
				}
				s.cfg.Log.Warn("Booking already terminal on invoice rejection", "booking_id", invoice.BookingID)
			}
			return nil
		}

		// A rejected installment stays retryable; the booking and already
		// unlocked sessions are untouched.
		if err := s.installments.MarkRejected(sessCtx, row.ID); err != nil {
			return apperrors.Internal("Failed to mark installment rejected", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to reject invoice", "invoice_id", invoiceID, "error", err)
		return err
	}

	s.cfg.Log.Info("Invoice rejected", "invoice_id", invoice.ID, "booking_id", invoice.BookingID, "initiating", invoice.Initiating)

	s.publish(ctx, events.Event{
		Type:      events.TypeInvoiceRejected,
		BookingID: invoice.BookingID,
		InvoiceID: invoice.ID,
		Reason:    notes,
	})
	if invoice.Initiating {
		s.publish(ctx, events.Event{
			Type:          events.TypeBookingCancelled,
			BookingID:     invoice.BookingID,
			BookingStatus: string(model.BookingStatusCancelled),
			Reason:        notes,
		})
	}

	return nil
}

func (s *billingService) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	return s.getInvoice(ctx, id)
}

func (s *billingService) GetInstallments(ctx context.Context, bookingID string) ([]*model.Installment, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	installments, err := s.installments.FindByBooking(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve installments", err)
	}

	return installments, nil
}

// --- Helpers ---

func planFromBooking(b *model.Booking) *installment.Plan {
	if !b.IsInstallment {
		return nil
	}
	return &installment.Plan{
		Installments:           b.TotalInstallments,
		SessionsPerInstallment: b.SessionsPerInstallment,
		AmountPerInstallment:   b.InstallmentAmountCents,
		TotalSessions:          b.TotalSessions,
		TotalPrice:             b.AmountCents,
	}
}

func (s *billingService) getBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, billingerrors.ErrBookingNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, billingerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *billingService) getInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Invoice ID cannot be empty")
	}

	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, billingerrors.ErrInvoiceNotFound) {
			return nil, apperrors.NotFoundWithID("Invoice", id)
		}
		if errors.Is(err, billingerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid invoice ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve invoice", err)
	}

	return invoice, nil
}

func (s *billingService) validateBooking(booking *model.Booking) error {
	if err := s.bookingValidator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *billingService) validateInvoice(invoice *model.Invoice) error {
	if err := s.invoiceValidator.Validate(invoice); err != nil {
		s.cfg.Log.Warn("Invoice validation failed", "error", err)
		return apperrors.Validation("Invoice validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *billingService) publishPaid(ctx context.Context, invoice *model.Invoice, booking *model.Booking, unlock, paidTotal int) {
	s.publish(ctx, events.Event{
		Type:        events.TypeInvoicePaid,
		BookingID:   booking.ID,
		StudentID:   booking.StudentID,
		TeacherID:   booking.TeacherID,
		LessonID:    booking.LessonID,
		InvoiceID:   invoice.ID,
		AmountCents: invoice.AmountCents,
	})
	s.publish(ctx, events.Event{
		Type:             events.TypeSessionsUnlocked,
		BookingID:        booking.ID,
		StudentID:        booking.StudentID,
		LessonID:         booking.LessonID,
		SessionsUnlocked: unlock,
		PaidSessions:     paidTotal,
	})
}

func (s *billingService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
