package service

import (
	"context"
	"testing"
	"time"

	billingerrors "tutorhub/internal/billing/errors"
	"tutorhub/internal/billing/validator"
	bookingsvalidator "tutorhub/internal/bookings/validator"
	"tutorhub/pkg/config"
	mongotx "tutorhub/pkg/db/mongo"
	apperrors "tutorhub/pkg/errors"
	"tutorhub/pkg/events"
	"tutorhub/pkg/logger"
	"tutorhub/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	studentID = "64a000000000000000000010"
	teacherID = "64a000000000000000000020"
	lessonID  = "64a000000000000000000030"
	bookingID = "64a000000000000000000040"
	invoiceID = "64a000000000000000000050"
)

// Mock repositories for testing
type mockBookingRepository struct {
	createFunc           func(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	findByIDFunc         func(ctx context.Context, id string) (*model.Booking, error)
	findActiveFunc       func(ctx context.Context, studentID, lessonID string) (*model.Booking, error)
	incrementFunc        func(ctx context.Context, id string, version int64, delta int) error
	transitionFunc       func(ctx context.Context, id string, from, to model.BookingStatus) error
	cancelActiveFunc     func(ctx context.Context, id string) error
	incrementedBy        []int
	transitions          []string
	cancelledBookingIDs  []string
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	booking.ID = bookingID
	return booking, nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, billingerrors.ErrBookingNotFound
}

func (m *mockBookingRepository) FindActiveByStudentAndLesson(ctx context.Context, studentID, lessonID string) (*model.Booking, error) {
	if m.findActiveFunc != nil {
		return m.findActiveFunc(ctx, studentID, lessonID)
	}
	return nil, billingerrors.ErrBookingNotFound
}

func (m *mockBookingRepository) IncrementPaidSessions(ctx context.Context, id string, version int64, delta int) error {
	m.incrementedBy = append(m.incrementedBy, delta)
	if m.incrementFunc != nil {
		return m.incrementFunc(ctx, id, version, delta)
	}
	return nil
}

func (m *mockBookingRepository) Transition(ctx context.Context, id string, from, to model.BookingStatus) error {
	m.transitions = append(m.transitions, string(from)+"->"+string(to))
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, id, from, to)
	}
	return nil
}

func (m *mockBookingRepository) CancelActive(ctx context.Context, id string) error {
	m.cancelledBookingIDs = append(m.cancelledBookingIDs, id)
	if m.cancelActiveFunc != nil {
		return m.cancelActiveFunc(ctx, id)
	}
	return nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockInvoiceRepository struct {
	createFunc            func(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error)
	findByIDFunc          func(ctx context.Context, id string) (*model.Invoice, error)
	findByExternalRefFunc func(ctx context.Context, externalRef string) (*model.Invoice, error)
	markPaidFunc          func(ctx context.Context, id string) error
	markRejectedFunc      func(ctx context.Context, id string, adminNotes string) error
	paidIDs               []string
	rejectedIDs           []string
}

func (m *mockInvoiceRepository) Create(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, invoice)
	}
	invoice.ID = invoiceID
	return invoice, nil
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id string) (*model.Invoice, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, billingerrors.ErrInvoiceNotFound
}

func (m *mockInvoiceRepository) FindByExternalRef(ctx context.Context, externalRef string) (*model.Invoice, error) {
	if m.findByExternalRefFunc != nil {
		return m.findByExternalRefFunc(ctx, externalRef)
	}
	return nil, billingerrors.ErrInvoiceNotFound
}

func (m *mockInvoiceRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.Invoice, error) {
	return []*model.Invoice{}, nil
}

func (m *mockInvoiceRepository) MarkPaid(ctx context.Context, id string) error {
	m.paidIDs = append(m.paidIDs, id)
	if m.markPaidFunc != nil {
		return m.markPaidFunc(ctx, id)
	}
	return nil
}

func (m *mockInvoiceRepository) MarkRejected(ctx context.Context, id string, adminNotes string) error {
	m.rejectedIDs = append(m.rejectedIDs, id)
	if m.markRejectedFunc != nil {
		return m.markRejectedFunc(ctx, id, adminNotes)
	}
	return nil
}

type mockInstallmentRepository struct {
	createFunc          func(ctx context.Context, installment *model.Installment) (*model.Installment, error)
	findByInvoiceFunc   func(ctx context.Context, invoiceID string) (*model.Installment, error)
	countNonRejected    int64
	created             []*model.Installment
	paidIDs             []string
	rejectedIDs         []string
}

func (m *mockInstallmentRepository) Create(ctx context.Context, installment *model.Installment) (*model.Installment, error) {
	installment.ID = "64a000000000000000000060"
	m.created = append(m.created, installment)
	if m.createFunc != nil {
		return m.createFunc(ctx, installment)
	}
	return installment, nil
}

func (m *mockInstallmentRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.Installment, error) {
	return m.created, nil
}

func (m *mockInstallmentRepository) FindByInvoice(ctx context.Context, invoiceID string) (*model.Installment, error) {
	if m.findByInvoiceFunc != nil {
		return m.findByInvoiceFunc(ctx, invoiceID)
	}
	return nil, billingerrors.ErrInstallmentNotFound
}

func (m *mockInstallmentRepository) CountNonRejected(ctx context.Context, bookingID string) (int64, error) {
	return m.countNonRejected, nil
}

func (m *mockInstallmentRepository) MarkPaid(ctx context.Context, id string) error {
	m.paidIDs = append(m.paidIDs, id)
	return nil
}

func (m *mockInstallmentRepository) MarkRejected(ctx context.Context, id string) error {
	m.rejectedIDs = append(m.rejectedIDs, id)
	return nil
}

type mockLessonReader struct {
	lesson *model.Lesson
}

func (m *mockLessonReader) FindLessonByID(ctx context.Context, id string) (*model.Lesson, error) {
	if m.lesson == nil {
		return nil, billingerrors.ErrLessonNotFound
	}
	return m.lesson, nil
}

type capturePublisher struct {
	published []events.Event
}

func (c *capturePublisher) Publish(ctx context.Context, event events.Event) error {
	c.published = append(c.published, event)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) typesSeen() map[string]int {
	seen := map[string]int{}
	for _, e := range c.published {
		seen[e.Type]++
	}
	return seen
}

func testConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "billing-test",
	})
	return &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

type fixture struct {
	bookings     *mockBookingRepository
	invoices     *mockInvoiceRepository
	installments *mockInstallmentRepository
	lessons      *mockLessonReader
	publisher    *capturePublisher
	service      BillingService
}

func newFixture(lesson *model.Lesson) *fixture {
	cfg := testConfig()
	f := &fixture{
		bookings:     &mockBookingRepository{},
		invoices:     &mockInvoiceRepository{},
		installments: &mockInstallmentRepository{},
		lessons:      &mockLessonReader{lesson: lesson},
		publisher:    &capturePublisher{},
	}
	f.service = NewBillingService(
		f.bookings,
		f.invoices,
		f.installments,
		f.lessons,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		validator.NewInvoiceValidator(cfg.Log),
		f.publisher,
		cfg,
	)
	return f
}

func groupCourseLesson() *model.Lesson {
	return &model.Lesson{
		ID:            lessonID,
		TeacherID:     teacherID,
		Title:         "Spanish for Beginners",
		Kind:          model.LessonKindGroupCourse,
		DurationMin:   60,
		TotalSessions: 12,
		PriceCents:    24000,
		Active:        true,
	}
}

func individualLesson() *model.Lesson {
	return &model.Lesson{
		ID:          lessonID,
		TeacherID:   teacherID,
		Title:       "Algebra II",
		Kind:        model.LessonKindIndividual,
		DurationMin: 60,
		PriceCents:  4000,
		Active:      true,
	}
}

func cardPurchase() *PurchaseRequest {
	return &PurchaseRequest{
		StudentID:     studentID,
		LessonID:      lessonID,
		PaymentMethod: model.PaymentMethodCard,
		ExternalRef:   "pay_abc123",
	}
}

func installmentBooking() *model.Booking {
	return &model.Booking{
		ID:                     bookingID,
		StudentID:              studentID,
		TeacherID:              teacherID,
		LessonID:               lessonID,
		LessonTitle:            "Spanish for Beginners",
		LessonKind:             model.LessonKindGroupCourse,
		DurationMin:            60,
		AmountCents:            24000,
		PaymentMethod:          model.PaymentMethodCard,
		Status:                 model.BookingStatusAccepted,
		IsInstallment:          true,
		TotalInstallments:      4,
		SessionsPerInstallment: 3,
		InstallmentAmountCents: 6000,
		TotalSessions:          12,
		PaidSessions:           3,
		Version:                1,
	}
}

func TestRecordPurchase_GroupCourseWithCard(t *testing.T) {
	f := newFixture(groupCourseLesson())

	result, err := f.service.RecordPurchase(context.Background(), cardPurchase())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Plan == nil {
		t.Fatal("expected an installment plan for a 12 session course")
	}
	if result.Plan.Installments != 4 || result.Plan.SessionsPerInstallment != 3 || result.Plan.AmountPerInstallment != 6000 {
		t.Errorf("unexpected plan: %+v", result.Plan)
	}

	if !result.Booking.IsInstallment || result.Booking.TotalInstallments != 4 {
		t.Errorf("plan snapshot missing on booking: %+v", result.Booking)
	}
	if result.Booking.Status != model.BookingStatusScheduled {
		t.Errorf("instant group purchase creates a scheduled booking, got %s", result.Booking.Status)
	}
	if result.Booking.PaidSessions != 3 {
		t.Errorf("card purchase should unlock first 3 sessions, got %d", result.Booking.PaidSessions)
	}

	if result.Invoice.Status != model.InvoiceStatusPaid || !result.Invoice.Initiating {
		t.Errorf("expected paid initiating invoice, got %+v", result.Invoice)
	}
	if result.Invoice.AmountCents != 6000 {
		t.Errorf("first charge should be one installment, got %d", result.Invoice.AmountCents)
	}

	seen := f.publisher.typesSeen()
	for _, want := range []string{events.TypeBookingCreated, events.TypeInvoicePaid, events.TypeSessionsUnlocked} {
		if seen[want] == 0 {
			t.Errorf("expected %s event, got %v", want, seen)
		}
	}
}

func TestRecordPurchase_ManualMethodStaysPending(t *testing.T) {
	f := newFixture(groupCourseLesson())

	req := cardPurchase()
	req.PaymentMethod = model.PaymentMethodBankTransfer
	req.ReceiptRef = "receipt-77"

	result, err := f.service.RecordPurchase(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Invoice.Status != model.InvoiceStatusPending {
		t.Errorf("manual method should leave invoice pending, got %s", result.Invoice.Status)
	}
	if result.Booking.Status != model.BookingStatusPending {
		t.Errorf("manual method should leave booking pending, got %s", result.Booking.Status)
	}
	if result.Booking.PaidSessions != 0 {
		t.Errorf("no sessions unlock before approval, got %d", result.Booking.PaidSessions)
	}
	if len(f.bookings.incrementedBy) != 0 {
		t.Errorf("paid sessions must not be incremented, got %v", f.bookings.incrementedBy)
	}
}

func TestRecordPurchase_ManualMethodRequiresReceipt(t *testing.T) {
	f := newFixture(groupCourseLesson())

	req := cardPurchase()
	req.PaymentMethod = model.PaymentMethodCashReceipt

	_, err := f.service.RecordPurchase(context.Background(), req)
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected %s, got %v", apperrors.CodeValidation, err)
	}
}

func TestRecordPurchase_IndividualUnlocksSingleSession(t *testing.T) {
	f := newFixture(individualLesson())

	result, err := f.service.RecordPurchase(context.Background(), cardPurchase())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Plan != nil {
		t.Errorf("individual lesson should have no plan, got %+v", result.Plan)
	}
	if result.Invoice.AmountCents != 4000 {
		t.Errorf("expected full price charge, got %d", result.Invoice.AmountCents)
	}
	if result.Booking.PaidSessions != 1 {
		t.Errorf("expected 1 paid session, got %d", result.Booking.PaidSessions)
	}
	if result.Booking.Status != model.BookingStatusAccepted {
		t.Errorf("instant individual purchase creates an accepted booking, got %s", result.Booking.Status)
	}
}

func TestRecordPurchase_ReplayedExternalRef(t *testing.T) {
	f := newFixture(groupCourseLesson())

	booking := installmentBooking()
	existing := &model.Invoice{ID: invoiceID, BookingID: bookingID, Status: model.InvoiceStatusPaid, ExternalRef: "pay_abc123", Initiating: true}
	f.invoices.findByExternalRefFunc = func(ctx context.Context, externalRef string) (*model.Invoice, error) {
		return existing, nil
	}
	f.bookings.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}

	result, err := f.service.RecordPurchase(context.Background(), cardPurchase())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Invoice != existing {
		t.Error("replay must return the original invoice")
	}
	if len(f.publisher.published) != 0 {
		t.Errorf("replay must not publish events, got %v", f.publisher.published)
	}
}

func TestRecordPurchase_ActiveBookingConflict(t *testing.T) {
	f := newFixture(groupCourseLesson())
	f.bookings.findActiveFunc = func(ctx context.Context, studentID, lessonID string) (*model.Booking, error) {
		return installmentBooking(), nil
	}

	_, err := f.service.RecordPurchase(context.Background(), cardPurchase())
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected %s, got %v", apperrors.CodeConflict, err)
	}
}

func TestRecordPurchase_InactiveLesson(t *testing.T) {
	lesson := groupCourseLesson()
	lesson.Active = false
	f := newFixture(lesson)

	_, err := f.service.RecordPurchase(context.Background(), cardPurchase())
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected %s, got %v", apperrors.CodeConflict, err)
	}
}

func TestSubmitInstallment_SecondPaymentWithCard(t *testing.T) {
	f := newFixture(groupCourseLesson())
	booking := installmentBooking()
	f.bookings.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}

	req := &InstallmentRequest{PaymentMethod: model.PaymentMethodCard, ExternalRef: "pay_def456"}
	invoice, err := f.service.SubmitInstallment(context.Background(), bookingID, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if invoice.AmountCents != 6000 {
		t.Errorf("expected pinned installment amount 6000, got %d", invoice.AmountCents)
	}
	if invoice.Initiating {
		t.Error("installment invoice must not be initiating")
	}

	if len(f.installments.created) != 1 {
		t.Fatalf("expected one installment row, got %d", len(f.installments.created))
	}
	row := f.installments.created[0]
	if row.Number != 2 {
		t.Errorf("first stored row is installment #2, got #%d", row.Number)
	}
	if row.SessionsUnlocked != 3 {
		t.Errorf("installment #2 unlocks 3 sessions, got %d", row.SessionsUnlocked)
	}

	if len(f.bookings.incrementedBy) != 1 || f.bookings.incrementedBy[0] != 3 {
		t.Errorf("expected paid sessions incremented by 3, got %v", f.bookings.incrementedBy)
	}
}

func TestSubmitInstallment_RejectedRowIsRetryable(t *testing.T) {
	f := newFixture(groupCourseLesson())
	booking := installmentBooking()
	f.bookings.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}
	// One rejected row exists; it does not consume installment #2.
	f.installments.countNonRejected = 0

	req := &InstallmentRequest{PaymentMethod: model.PaymentMethodWallet, ExternalRef: "pay_retry"}
	_, err := f.service.SubmitInstallment(context.Background(), bookingID, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.installments.created[0].Number != 2 {
		t.Errorf("retry must reuse installment #2, got #%d", f.installments.created[0].Number)
	}
}

func TestSubmitInstallment_PlanExhausted(t *testing.T) {
	f := newFixture(groupCourseLesson())
	booking := installmentBooking()
	f.bookings.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}
	// Rows #2..#4 already accepted.
	f.installments.countNonRejected = 3

	req := &InstallmentRequest{PaymentMethod: model.PaymentMethodCard, ExternalRef: "pay_extra"}
	_, err := f.service.SubmitInstallment(context.Background(), bookingID, req)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected %s, got %v", apperrors.CodeConflict, err)
	}
}

func TestSubmitInstallment_NonInstallmentBooking(t *testing.T) {
	f := newFixture(individualLesson())
	booking := installmentBooking()
	booking.IsInstallment = false
	f.bookings.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}

	req := &InstallmentRequest{PaymentMethod: model.PaymentMethodCard, ExternalRef: "pay_x"}
	_, err := f.service.SubmitInstallment(context.Background(), bookingID, req)
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected %s, got %v", apperrors.CodeInvalidInput, err)
	}
}

func TestApproveInvoice_PendingInstallment(t *testing.T) {
	f := newFixture(groupCourseLesson())
	booking := installmentBooking()
	f.bookings.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}
	f.invoices.findByIDFunc = func(ctx context.Context, id string) (*model.Invoice, error) {
		return &model.Invoice{ID: invoiceID, BookingID: bookingID, Status: model.InvoiceStatusPending, AmountCents: 6000}, nil
	}
	f.installments.findByInvoiceFunc = func(ctx context.Context, id string) (*model.Installment, error) {
		return &model.Installment{ID: "64a000000000000000000060", BookingID: bookingID, InvoiceID: invoiceID, Number: 2, SessionsUnlocked: 3, Status: model.InstallmentStatusPending}, nil
	}

	if err := f.service.ApproveInvoice(context.Background(), invoiceID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.invoices.paidIDs) != 1 {
		t.Errorf("expected invoice marked paid, got %v", f.invoices.paidIDs)
	}
	if len(f.installments.paidIDs) != 1 {
		t.Errorf("expected installment marked paid, got %v", f.installments.paidIDs)
	}
	if len(f.bookings.incrementedBy) != 1 || f.bookings.incrementedBy[0] != 3 {
		t.Errorf("expected 3 sessions unlocked, got %v", f.bookings.incrementedBy)
	}

	seen := f.publisher.typesSeen()
	if seen[events.TypeInvoicePaid] != 1 || seen[events.TypeSessionsUnlocked] != 1 {
		t.Errorf("unexpected events: %v", seen)
	}
}

func TestApproveInvoice_InitiatingAcceptsBooking(t *testing.T) {
	f := newFixture(groupCourseLesson())
	booking := installmentBooking()
	booking.Status = model.BookingStatusPending
	booking.PaymentMethod = model.PaymentMethodBankTransfer
	booking.PaidSessions = 0
	f.bookings.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}
	f.invoices.findByIDFunc = func(ctx context.Context, id string) (*model.Invoice, error) {
		return &model.Invoice{ID: invoiceID, BookingID: bookingID, Status: model.InvoiceStatusPending, AmountCents: 6000, Initiating: true}, nil
	}

	if err := f.service.ApproveInvoice(context.Background(), invoiceID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.bookings.transitions) != 1 || f.bookings.transitions[0] != "pending->accepted" {
		t.Errorf("approval of the initiating invoice must accept the booking, got %v", f.bookings.transitions)
	}
	if len(f.bookings.incrementedBy) != 1 || f.bookings.incrementedBy[0] != 3 {
		t.Errorf("expected first 3 sessions unlocked, got %v", f.bookings.incrementedBy)
	}

	seen := f.publisher.typesSeen()
	if seen[events.TypeBookingAccepted] != 1 {
		t.Errorf("expected %s event, got %v", events.TypeBookingAccepted, seen)
	}
	if seen[events.TypeInvoicePaid] != 1 || seen[events.TypeSessionsUnlocked] != 1 {
		t.Errorf("unexpected events: %v", seen)
	}
}

func TestApproveInvoice_CancelledBookingConflict(t *testing.T) {
	f := newFixture(groupCourseLesson())
	booking := installmentBooking()
	booking.Status = model.BookingStatusCancelled
	f.bookings.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}
	f.invoices.findByIDFunc = func(ctx context.Context, id string) (*model.Invoice, error) {
		return &model.Invoice{ID: invoiceID, BookingID: bookingID, Status: model.InvoiceStatusPending, Initiating: true}, nil
	}

	err := f.service.ApproveInvoice(context.Background(), invoiceID)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected %s, got %v", apperrors.CodeConflict, err)
	}

	if len(f.invoices.paidIDs) != 0 || len(f.bookings.incrementedBy) != 0 {
		t.Error("a terminal booking must leave the invoice and counters untouched")
	}
}

func TestApproveInvoice_AlreadyPaidIsNoop(t *testing.T) {
	f := newFixture(groupCourseLesson())
	f.invoices.findByIDFunc = func(ctx context.Context, id string) (*model.Invoice, error) {
		return &model.Invoice{ID: invoiceID, BookingID: bookingID, Status: model.InvoiceStatusPaid}, nil
	}

	if err := f.service.ApproveInvoice(context.Background(), invoiceID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.invoices.paidIDs) != 0 || len(f.bookings.incrementedBy) != 0 {
		t.Error("approving a paid invoice must change nothing")
	}
}

func TestApproveInvoice_VersionRace(t *testing.T) {
	f := newFixture(groupCourseLesson())
	booking := installmentBooking()
	f.bookings.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		return booking, nil
	}
	f.bookings.incrementFunc = func(ctx context.Context, id string, version int64, delta int) error {
		return billingerrors.ErrStaleVersion
	}
	f.invoices.findByIDFunc = func(ctx context.Context, id string) (*model.Invoice, error) {
		return &model.Invoice{ID: invoiceID, BookingID: bookingID, Status: model.InvoiceStatusPending, Initiating: true}, nil
	}

	err := f.service.ApproveInvoice(context.Background(), invoiceID)
	if !apperrors.IsCode(err, apperrors.CodeConcurrentModification) {
		t.Fatalf("expected %s, got %v", apperrors.CodeConcurrentModification, err)
	}
}

func TestRejectInvoice_RequiresNotes(t *testing.T) {
	f := newFixture(groupCourseLesson())

	err := f.service.RejectInvoice(context.Background(), invoiceID, "   ")
	if !apperrors.IsCode(err, apperrors.CodeMissingReason) {
		t.Fatalf("expected %s, got %v", apperrors.CodeMissingReason, err)
	}
}

func TestRejectInvoice_InitiatingCancelsBooking(t *testing.T) {
	f := newFixture(groupCourseLesson())
	f.invoices.findByIDFunc = func(ctx context.Context, id string) (*model.Invoice, error) {
		return &model.Invoice{ID: invoiceID, BookingID: bookingID, Status: model.InvoiceStatusPending, Initiating: true}, nil
	}

	if err := f.service.RejectInvoice(context.Background(), invoiceID, "receipt unreadable"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.bookings.cancelledBookingIDs) != 1 || f.bookings.cancelledBookingIDs[0] != bookingID {
		t.Errorf("expected booking cancelled, got %v", f.bookings.cancelledBookingIDs)
	}

	seen := f.publisher.typesSeen()
	if seen[events.TypeInvoiceRejected] != 1 || seen[events.TypeBookingCancelled] != 1 {
		t.Errorf("unexpected events: %v", seen)
	}
}

func TestRejectInvoice_LaterInstallmentKeepsBooking(t *testing.T) {
	f := newFixture(groupCourseLesson())
	f.invoices.findByIDFunc = func(ctx context.Context, id string) (*model.Invoice, error) {
		return &model.Invoice{ID: invoiceID, BookingID: bookingID, Status: model.InvoiceStatusPending}, nil
	}
	f.installments.findByInvoiceFunc = func(ctx context.Context, id string) (*model.Installment, error) {
		return &model.Installment{ID: "64a000000000000000000060", BookingID: bookingID, InvoiceID: invoiceID, Number: 2, SessionsUnlocked: 3, Status: model.InstallmentStatusPending}, nil
	}

	if err := f.service.RejectInvoice(context.Background(), invoiceID, "amount mismatch"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.bookings.cancelledBookingIDs) != 0 {
		t.Errorf("later installment rejection must not cancel the booking, got %v", f.bookings.cancelledBookingIDs)
	}
	if len(f.bookings.incrementedBy) != 0 {
		t.Errorf("already unlocked sessions must stay, got %v", f.bookings.incrementedBy)
	}
	if len(f.installments.rejectedIDs) != 1 {
		t.Errorf("expected installment marked rejected, got %v", f.installments.rejectedIDs)
	}

	if f.publisher.typesSeen()[events.TypeBookingCancelled] != 0 {
		t.Error("no cancellation event for a later installment rejection")
	}
}
