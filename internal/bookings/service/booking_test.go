package service

import (
	"context"
	"testing"
	"time"

	bookingserrors "tutorhub/internal/bookings/errors"
	"tutorhub/internal/scheduling"
	"tutorhub/pkg/config"
	mongotx "tutorhub/pkg/db/mongo"
	apperrors "tutorhub/pkg/errors"
	"tutorhub/pkg/events"
	"tutorhub/pkg/logger"
	"tutorhub/pkg/meet"
	"tutorhub/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mock repository for testing
type mockBookingRepository struct {
	findByIDFunc       func(ctx context.Context, id string) (*model.Booking, error)
	transitionFunc     func(ctx context.Context, id string, from, to model.BookingStatus, set bson.M, unset bson.M) error
	committedSlotsFunc func(ctx context.Context, teacherID string, from, to time.Time) ([]model.CommittedSlot, error)
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) FindByStudent(ctx context.Context, studentID string, limit int, offset int64) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) CountByStudent(ctx context.Context, studentID string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) Transition(ctx context.Context, id string, from, to model.BookingStatus, set bson.M, unset bson.M) error {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, id, from, to, set, unset)
	}
	return nil
}

func (m *mockBookingRepository) CommittedSlots(ctx context.Context, teacherID string, from, to time.Time) ([]model.CommittedSlot, error) {
	if m.committedSlotsFunc != nil {
		return m.committedSlotsFunc(ctx, teacherID, from, to)
	}
	return nil, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockSlotLockRepository struct {
	createFunc func(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error)
	deleted    []string
}

func (m *mockSlotLockRepository) Create(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockSlotLockRepository) Delete(ctx context.Context, lockID string) error {
	m.deleted = append(m.deleted, lockID)
	return nil
}

type stubProvisioner struct {
	createFunc func(ctx context.Context, topic string, start time.Time, durationMin int) (*meet.Meeting, error)
	ended      []string
}

func (s *stubProvisioner) CreateMeeting(ctx context.Context, topic string, start time.Time, durationMin int) (*meet.Meeting, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, topic, start, durationMin)
	}
	return &meet.Meeting{MeetingID: "meet-1", JoinURL: "https://meet.example.com/j/1", HostURL: "https://meet.example.com/h/1"}, nil
}

func (s *stubProvisioner) EndMeeting(ctx context.Context, meetingID string) error {
	s.ended = append(s.ended, meetingID)
	return nil
}

type capturePublisher struct {
	published []events.Event
}

func (c *capturePublisher) Publish(ctx context.Context, event events.Event) error {
	c.published = append(c.published, event)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func testConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "bookings-test",
	})
	return &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		SlotLockTTL:  30 * time.Second,
	}
}

func newTestService(repo *mockBookingRepository, lockRepo *mockSlotLockRepository, provisioner *stubProvisioner, publisher *capturePublisher) *bookingService {
	cfg := testConfig()
	return &bookingService{
		repo:     repo,
		lockRepo: lockRepo,
		checker:  scheduling.NewChecker(cfg.Log, repo),
		meet:     provisioner,
		events:   publisher,
		cfg:      cfg,
	}
}

func pendingBooking() *model.Booking {
	return &model.Booking{
		ID:          "booking-1",
		StudentID:   "student-1",
		TeacherID:   "teacher-1",
		LessonID:    "lesson-1",
		LessonTitle: "Algebra II",
		LessonKind:  model.LessonKindIndividual,
		DurationMin: 60,
		AmountCents: 4000,
		Status:      model.BookingStatusPending,
	}
}

func futureStart() time.Time {
	return time.Now().Add(48 * time.Hour).Truncate(time.Hour)
}

func TestAccept_PendingBooking(t *testing.T) {
	booking := pendingBooking()
	var gotFrom, gotTo model.BookingStatus
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		transitionFunc: func(ctx context.Context, id string, from, to model.BookingStatus, set bson.M, unset bson.M) error {
			gotFrom, gotTo = from, to
			return nil
		},
	}
	publisher := &capturePublisher{}
	svc := newTestService(repo, &mockSlotLockRepository{}, &stubProvisioner{}, publisher)

	if _, err := svc.Accept(context.Background(), "booking-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotFrom != model.BookingStatusPending || gotTo != model.BookingStatusAccepted {
		t.Errorf("expected transition pending -> accepted, got %s -> %s", gotFrom, gotTo)
	}
	if len(publisher.published) != 1 || publisher.published[0].Type != events.TypeBookingAccepted {
		t.Errorf("expected a single %s event, got %+v", events.TypeBookingAccepted, publisher.published)
	}
}

func TestAccept_InvalidFromScheduled(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusScheduled
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}
	svc := newTestService(repo, &mockSlotLockRepository{}, &stubProvisioner{}, &capturePublisher{})

	_, err := svc.Accept(context.Background(), "booking-1")
	if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("expected %s, got %v", apperrors.CodeInvalidTransition, err)
	}
}

func TestSchedule_SetsSlotAndMeeting(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusAccepted
	start := futureStart()

	var gotSet bson.M
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		transitionFunc: func(ctx context.Context, id string, from, to model.BookingStatus, set bson.M, unset bson.M) error {
			gotSet = set
			return nil
		},
	}
	lockRepo := &mockSlotLockRepository{}
	svc := newTestService(repo, lockRepo, &stubProvisioner{}, &capturePublisher{})

	if _, err := svc.Schedule(context.Background(), "booking-1", start); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := gotSet["scheduled_at"]; got != start.UTC() {
		t.Errorf("expected scheduled_at %v, got %v", start.UTC(), got)
	}
	if gotSet["meeting_id"] != "meet-1" {
		t.Errorf("expected meeting credentials in update, got %v", gotSet)
	}
	if len(lockRepo.deleted) != 1 {
		t.Errorf("expected slot lock to be released, deleted=%v", lockRepo.deleted)
	}
}

func TestSchedule_RejectsOverlap(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusAccepted
	start := futureStart()

	transitioned := false
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		committedSlotsFunc: func(ctx context.Context, teacherID string, from, to time.Time) ([]model.CommittedSlot, error) {
			return []model.CommittedSlot{
				{
					RefID: "booking-other",
					Label: "Geometry",
					Slot:  model.TimeSlot{Start: start.Add(30 * time.Minute), DurationMin: 60},
				},
			}, nil
		},
		transitionFunc: func(ctx context.Context, id string, from, to model.BookingStatus, set bson.M, unset bson.M) error {
			transitioned = true
			return nil
		},
	}
	svc := newTestService(repo, &mockSlotLockRepository{}, &stubProvisioner{}, &capturePublisher{})

	_, err := svc.Schedule(context.Background(), "booking-1", start)
	if !apperrors.IsCode(err, apperrors.CodeSlotOverlap) {
		t.Fatalf("expected %s, got %v", apperrors.CodeSlotOverlap, err)
	}
	if transitioned {
		t.Error("booking must not transition when the slot conflicts")
	}
}

func TestSchedule_GroupCourseRejected(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusAccepted
	booking.LessonKind = model.LessonKindGroupCourse
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}
	svc := newTestService(repo, &mockSlotLockRepository{}, &stubProvisioner{}, &capturePublisher{})

	_, err := svc.Schedule(context.Background(), "booking-1", futureStart())
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected %s, got %v", apperrors.CodeInvalidInput, err)
	}
}

func TestSchedule_SlotLockHeld(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusAccepted
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}
	lockRepo := &mockSlotLockRepository{
		createFunc: func(ctx context.Context, lock *model.SlotLock) (*model.SlotLock, error) {
			return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		},
	}
	svc := newTestService(repo, lockRepo, &stubProvisioner{}, &capturePublisher{})

	_, err := svc.Schedule(context.Background(), "booking-1", futureStart())
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected %s, got %v", apperrors.CodeConflict, err)
	}
}

func TestSchedule_MeetingFailureStillSchedules(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusAccepted

	var gotSet bson.M
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		transitionFunc: func(ctx context.Context, id string, from, to model.BookingStatus, set bson.M, unset bson.M) error {
			gotSet = set
			return nil
		},
	}
	provisioner := &stubProvisioner{
		createFunc: func(ctx context.Context, topic string, start time.Time, durationMin int) (*meet.Meeting, error) {
			return nil, context.DeadlineExceeded
		},
	}
	svc := newTestService(repo, &mockSlotLockRepository{}, provisioner, &capturePublisher{})

	if _, err := svc.Schedule(context.Background(), "booking-1", futureStart()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotSet == nil {
		t.Fatal("expected the booking to be scheduled despite meeting failure")
	}
	if _, ok := gotSet["meeting_id"]; ok {
		t.Errorf("expected no meeting credentials in update, got %v", gotSet)
	}
}

func TestSchedule_PastStartRejected(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusAccepted
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}
	svc := newTestService(repo, &mockSlotLockRepository{}, &stubProvisioner{}, &capturePublisher{})

	_, err := svc.Schedule(context.Background(), "booking-1", time.Now().Add(-time.Hour))
	if !apperrors.IsCode(err, apperrors.CodePastDate) {
		t.Fatalf("expected %s, got %v", apperrors.CodePastDate, err)
	}
}

func TestSchedule_ConcurrentStatusChange(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusAccepted
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		transitionFunc: func(ctx context.Context, id string, from, to model.BookingStatus, set bson.M, unset bson.M) error {
			return bookingserrors.ErrStaleStatus
		},
	}
	svc := newTestService(repo, &mockSlotLockRepository{}, &stubProvisioner{}, &capturePublisher{})

	_, err := svc.Schedule(context.Background(), "booking-1", futureStart())
	if !apperrors.IsCode(err, apperrors.CodeConcurrentModification) {
		t.Fatalf("expected %s, got %v", apperrors.CodeConcurrentModification, err)
	}
}

func TestReschedule_ExcludesOwnSlot(t *testing.T) {
	existing := futureStart()
	booking := pendingBooking()
	booking.Status = model.BookingStatusScheduled
	booking.ScheduledAt = &existing

	newStart := existing.Add(30 * time.Minute)
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		committedSlotsFunc: func(ctx context.Context, teacherID string, from, to time.Time) ([]model.CommittedSlot, error) {
			// The booking's own committed slot overlaps the new start.
			return []model.CommittedSlot{
				{
					RefID: booking.ID,
					Label: booking.LessonTitle,
					Slot:  model.TimeSlot{Start: existing, DurationMin: booking.DurationMin},
				},
			}, nil
		},
	}
	svc := newTestService(repo, &mockSlotLockRepository{}, &stubProvisioner{}, &capturePublisher{})

	if _, err := svc.Reschedule(context.Background(), "booking-1", newStart); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestComplete_ClearsMeetingCredentials(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusScheduled
	booking.MeetingID = "meet-42"

	var gotUnset bson.M
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		transitionFunc: func(ctx context.Context, id string, from, to model.BookingStatus, set bson.M, unset bson.M) error {
			gotUnset = unset
			return nil
		},
	}
	provisioner := &stubProvisioner{}
	svc := newTestService(repo, &mockSlotLockRepository{}, provisioner, &capturePublisher{})

	if _, err := svc.Complete(context.Background(), "booking-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, field := range []string{"meeting_id", "meeting_join_url", "meeting_host_url"} {
		if _, ok := gotUnset[field]; !ok {
			t.Errorf("expected %s to be unset on completion", field)
		}
	}
	if len(provisioner.ended) != 1 || provisioner.ended[0] != "meet-42" {
		t.Errorf("expected meeting meet-42 to be ended, got %v", provisioner.ended)
	}
}

func TestCancel_PublishesReason(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusAccepted

	publisher := &capturePublisher{}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}
	svc := newTestService(repo, &mockSlotLockRepository{}, &stubProvisioner{}, publisher)

	if _, err := svc.Cancel(context.Background(), "booking-1", "teacher unavailable"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.published))
	}
	event := publisher.published[0]
	if event.Type != events.TypeBookingCancelled || event.Reason != "teacher unavailable" {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestCancel_TerminalBooking(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingStatusCompleted
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}
	svc := newTestService(repo, &mockSlotLockRepository{}, &stubProvisioner{}, &capturePublisher{})

	_, err := svc.Cancel(context.Background(), "booking-1", "too late")
	if !apperrors.IsCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("expected %s, got %v", apperrors.CodeInvalidTransition, err)
	}
}
