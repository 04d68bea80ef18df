package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "tutorhub/internal/bookings/errors"
	"tutorhub/internal/bookings/repository"
	"tutorhub/internal/scheduling"
	"tutorhub/pkg/config"
	apperrors "tutorhub/pkg/errors"
	"tutorhub/pkg/events"
	"tutorhub/pkg/meet"
	"tutorhub/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type BookingService interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByStudent(ctx context.Context, studentID string, limit int, offset int64) ([]*model.Booking, int64, error)

	Accept(ctx context.Context, id string) (*model.Booking, error)
	Schedule(ctx context.Context, id string, start time.Time) (*model.Booking, error)
	Reschedule(ctx context.Context, id string, start time.Time) (*model.Booking, error)
	Complete(ctx context.Context, id string) (*model.Booking, error)
	Cancel(ctx context.Context, id string, reason string) (*model.Booking, error)
}

type bookingService struct {
	repo     repository.BookingRepository
	lockRepo scheduling.SlotLockRepository
	checker  *scheduling.Checker
	meet     meet.Provisioner
	events   events.Publisher
	cfg      *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo scheduling.SlotLockRepository,
	checker *scheduling.Checker,
	provisioner meet.Provisioner,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:     repo,
		lockRepo: lockRepo,
		checker:  checker,
		meet:     provisioner,
		events:   publisher,
		cfg:      cfg,
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) GetByStudent(ctx context.Context, studentID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if studentID == "" {
		return nil, 0, apperrors.InvalidInput("Student ID cannot be empty")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByStudent(ctx, studentID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count student bookings", "student_id", studentID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByStudent(ctx, studentID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list student bookings", "student_id", studentID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) Accept(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, booking, model.BookingStatusAccepted, nil, nil); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking accepted", "id", booking.ID, "teacher_id", booking.TeacherID)
	s.publish(ctx, events.Event{
		Type:          events.TypeBookingAccepted,
		BookingID:     booking.ID,
		StudentID:     booking.StudentID,
		TeacherID:     booking.TeacherID,
		LessonID:      booking.LessonID,
		BookingStatus: string(model.BookingStatusAccepted),
	})

	return s.GetByID(ctx, id)
}

func (s *bookingService) Schedule(ctx context.Context, id string, start time.Time) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.LessonKind != model.LessonKindIndividual {
		return nil, apperrors.InvalidInput("Group course bookings are scheduled per session, not on the booking")
	}
	if !booking.Status.CanTransitionTo(model.BookingStatusScheduled) {
		return nil, apperrors.InvalidTransition("booking", string(booking.Status), string(model.BookingStatusScheduled))
	}

	if err := s.placeSlot(ctx, booking, start, false); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking scheduled",
		"id", booking.ID,
		"teacher_id", booking.TeacherID,
		"start_time", start,
	)
	s.publish(ctx, events.Event{
		Type:          events.TypeBookingScheduled,
		BookingID:     booking.ID,
		StudentID:     booking.StudentID,
		TeacherID:     booking.TeacherID,
		LessonID:      booking.LessonID,
		BookingStatus: string(model.BookingStatusScheduled),
	})

	return s.GetByID(ctx, id)
}

func (s *bookingService) Reschedule(ctx context.Context, id string, start time.Time) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.LessonKind != model.LessonKindIndividual {
		return nil, apperrors.InvalidInput("Group course bookings are scheduled per session, not on the booking")
	}
	if booking.Status != model.BookingStatusScheduled {
		return nil, apperrors.InvalidTransition("booking", string(booking.Status), string(model.BookingStatusScheduled))
	}

	if err := s.placeSlot(ctx, booking, start, true); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking rescheduled",
		"id", booking.ID,
		"teacher_id", booking.TeacherID,
		"start_time", start,
	)

	return s.GetByID(ctx, id)
}

// placeSlot runs the conflict check and commits the new start time. The
// advisory lock closes the race between two requests aiming at the same
// teacher slot; the in-transaction re-check closes the rest.
func (s *bookingService) placeSlot(ctx context.Context, booking *model.Booking, start time.Time, editing bool) error {
	slot := model.TimeSlot{Start: start, DurationMin: booking.DurationMin}

	exclude := []string{}
	if editing {
		exclude = append(exclude, booking.ID)
	}

	if err := s.checker.Check(ctx, booking.TeacherID, slot, exclude...); err != nil {
		return err
	}

	lockID, err := s.acquireSlotLock(ctx, booking.TeacherID, start)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	meeting := s.provisionMeeting(ctx, booking, start)

	from := booking.Status
	to := model.BookingStatusScheduled

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checker.Check(sessCtx, booking.TeacherID, slot, exclude...); err != nil {
			return err
		}

		set := map[string]any{
			"scheduled_at": start.UTC(),
		}
		if meeting != nil {
			set["meeting_id"] = meeting.MeetingID
			set["meeting_join_url"] = meeting.JoinURL
			set["meeting_host_url"] = meeting.HostURL
		}

		if err := s.repo.Transition(sessCtx, booking.ID, from, to, set, nil); err != nil {
			if errors.Is(err, bookingserrors.ErrStaleStatus) {
				return apperrors.ConcurrentModification("booking")
			}
			return apperrors.Internal("Failed to schedule booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to place booking slot", "id", booking.ID, "error", err)
		return err
	}

	return nil
}

func (s *bookingService) Complete(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unset := map[string]any{
		"meeting_id":       "",
		"meeting_join_url": "",
		"meeting_host_url": "",
	}
	if err := s.transition(ctx, booking, model.BookingStatusCompleted, nil, unset); err != nil {
		return nil, err
	}

	s.endMeeting(ctx, booking.MeetingID)

	s.cfg.Log.Info("Booking completed", "id", booking.ID)
	s.publish(ctx, events.Event{
		Type:          events.TypeBookingCompleted,
		BookingID:     booking.ID,
		StudentID:     booking.StudentID,
		TeacherID:     booking.TeacherID,
		LessonID:      booking.LessonID,
		BookingStatus: string(model.BookingStatusCompleted),
	})

	return s.GetByID(ctx, id)
}

func (s *bookingService) Cancel(ctx context.Context, id string, reason string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unset := map[string]any{
		"meeting_id":       "",
		"meeting_join_url": "",
		"meeting_host_url": "",
	}
	if err := s.transition(ctx, booking, model.BookingStatusCancelled, nil, unset); err != nil {
		return nil, err
	}

	s.endMeeting(ctx, booking.MeetingID)

	s.cfg.Log.Info("Booking cancelled", "id", booking.ID, "reason", reason)
	s.publish(ctx, events.Event{
		Type:          events.TypeBookingCancelled,
		BookingID:     booking.ID,
		StudentID:     booking.StudentID,
		TeacherID:     booking.TeacherID,
		LessonID:      booking.LessonID,
		BookingStatus: string(model.BookingStatusCancelled),
		Reason:        reason,
	})

	return s.GetByID(ctx, id)
}

// --- Helpers ---

// transition enforces the state machine and applies the status change with
// a status-filtered update, so a concurrent move surfaces instead of being
// silently overwritten.
func (s *bookingService) transition(ctx context.Context, booking *model.Booking, to model.BookingStatus, set map[string]any, unset map[string]any) error {
	if !booking.Status.CanTransitionTo(to) {
		return apperrors.InvalidTransition("booking", string(booking.Status), string(to))
	}

	if err := s.repo.Transition(ctx, booking.ID, booking.Status, to, set, unset); err != nil {
		if errors.Is(err, bookingserrors.ErrStaleStatus) {
			return apperrors.ConcurrentModification("booking")
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid booking ID format")
		}
		return apperrors.Internal("Failed to update booking status", err)
	}
	return nil
}

func (s *bookingService) provisionMeeting(ctx context.Context, booking *model.Booking, start time.Time) *meet.Meeting {
	meeting, err := s.meet.CreateMeeting(ctx, booking.LessonTitle, start, booking.DurationMin)
	if err != nil {
		s.cfg.Log.Warn("Meeting provisioning failed, scheduling without credentials",
			"booking_id", booking.ID,
			"error", err,
		)
		return nil
	}
	return meeting
}

func (s *bookingService) endMeeting(ctx context.Context, meetingID string) {
	if meetingID == "" {
		return
	}
	if err := s.meet.EndMeeting(ctx, meetingID); err != nil {
		s.cfg.Log.Warn("Failed to end meeting", "meeting_id", meetingID, "error", err)
	}
}

func (s *bookingService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

func (s *bookingService) mapRepoError(err error, id string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	return apperrors.Internal("Failed to retrieve booking", err)
}

// acquireSlotLock creates an advisory lock to prevent concurrent scheduling
// Returns the lock ID if successful, or conflict error if lock already exists
func (s *bookingService) acquireSlotLock(ctx context.Context, teacherID string, startTime time.Time) (string, error) {
	lockID := fmt.Sprintf("slot_%s_%d", teacherID, startTime.Unix())

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.SlotLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This time slot is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lockID, nil
}

// releaseSlotLock removes the advisory lock
func (s *bookingService) releaseSlotLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}
