package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	courseserrors "tutorhub/internal/courses/errors"
	"tutorhub/internal/courses/repository"
	"tutorhub/internal/scheduling"
	"tutorhub/pkg/config"
	apperrors "tutorhub/pkg/errors"
	"tutorhub/pkg/events"
	"tutorhub/pkg/meet"
	"tutorhub/pkg/model"
	"tutorhub/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type SessionService interface {
	GetByLesson(ctx context.Context, lessonID string) ([]*model.CourseSession, error)
	Schedule(ctx context.Context, id string, start time.Time) (*model.CourseSession, error)
	Activate(ctx context.Context, id string) (*model.CourseSession, error)
	Complete(ctx context.Context, id string) (*model.CourseSession, error)
	AttachRecording(ctx context.Context, id string, url string) (*model.CourseSession, error)

	// ForStudent returns the lesson's sessions as the enrolled student sees
	// them. Sessions beyond the student's paid-session count are locked and
	// their URLs redacted.
	ForStudent(ctx context.Context, lessonID, studentID string) ([]model.SessionView, error)
}

type sessionService struct {
	repo       repository.SessionRepository
	enrollment repository.EnrollmentReader
	lockRepo   scheduling.SlotLockRepository
	checker    *scheduling.Checker
	meet       meet.Provisioner
	events     events.Publisher
	cfg        *config.Config
}

func NewSessionService(
	repo repository.SessionRepository,
	enrollment repository.EnrollmentReader,
	lockRepo scheduling.SlotLockRepository,
	checker *scheduling.Checker,
	provisioner meet.Provisioner,
	publisher events.Publisher,
	cfg *config.Config,
) SessionService {
	return &sessionService{
		repo:       repo,
		enrollment: enrollment,
		lockRepo:   lockRepo,
		checker:    checker,
		meet:       provisioner,
		events:     publisher,
		cfg:        cfg,
	}
}

func (s *sessionService) GetByLesson(ctx context.Context, lessonID string) ([]*model.CourseSession, error) {
	if lessonID == "" {
		return nil, apperrors.InvalidInput("Lesson ID cannot be empty")
	}

	sessions, err := s.repo.FindByLesson(ctx, lessonID)
	if err != nil {
		s.cfg.Log.Error("Failed to list course sessions", "lesson_id", lessonID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve course sessions", err)
	}

	return sessions, nil
}

// Schedule assigns or moves a session's time slot. Only a pending session
// can be (re)scheduled; an active or completed one already happened or is
// happening.
func (s *sessionService) Schedule(ctx context.Context, id string, start time.Time) (*model.CourseSession, error) {
	session, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionStatusPending {
		return nil, apperrors.InvalidInput("Only a pending session can be scheduled")
	}

	slot := model.TimeSlot{Start: start, DurationMin: session.DurationMin}

	exclude := []string{}
	if session.ScheduledAt != nil {
		exclude = append(exclude, session.ID)
	}

	if err := s.checker.Check(ctx, session.TeacherID, slot, exclude...); err != nil {
		return nil, err
	}

	lockID, err := s.acquireSlotLock(ctx, session.TeacherID, start)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Delete(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checker.Check(sessCtx, session.TeacherID, slot, exclude...); err != nil {
			return err
		}

		set := bson.M{"scheduled_at": start.UTC()}
		if err := s.repo.Transition(sessCtx, session.ID, model.SessionStatusPending, model.SessionStatusPending, set, nil); err != nil {
			if errors.Is(err, courseserrors.ErrStaleStatus) {
				return apperrors.ConcurrentModification("session")
			}
			return apperrors.Internal("Failed to schedule session", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to schedule session", "id", session.ID, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Session scheduled",
		"id", session.ID,
		"lesson_id", session.LessonID,
		"session_number", session.SessionNumber,
		"start_time", start,
	)

	return s.getByID(ctx, id)
}

func (s *sessionService) Activate(ctx context.Context, id string) (*model.CourseSession, error) {
	session, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !session.Status.CanTransitionTo(model.SessionStatusActive) {
		return nil, apperrors.InvalidTransition("session", string(session.Status), string(model.SessionStatusActive))
	}
	if session.ScheduledAt == nil {
		return nil, apperrors.InvalidInput("Session must be scheduled before activation")
	}
	// A slot whose start already passed needs rescheduling first.
	if session.ScheduledAt.Before(time.Now()) {
		return nil, apperrors.PastDate(*session.ScheduledAt)
	}

	set := bson.M{}
	meeting, err := s.meet.CreateMeeting(ctx, session.LessonTitle, *session.ScheduledAt, session.DurationMin)
	if err != nil {
		s.cfg.Log.Warn("Meeting provisioning failed, activating without credentials",
			"session_id", session.ID,
			"error", err,
		)
	} else {
		set["meeting_id"] = meeting.MeetingID
		set["meeting_join_url"] = meeting.JoinURL
		set["meeting_host_url"] = meeting.HostURL
	}

	if err := s.transition(ctx, session, model.SessionStatusActive, set, nil); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Session activated", "id", session.ID, "lesson_id", session.LessonID, "session_number", session.SessionNumber)
	s.publish(ctx, events.Event{
		Type:          events.TypeSessionActivated,
		LessonID:      session.LessonID,
		TeacherID:     session.TeacherID,
		SessionNumber: session.SessionNumber,
	})

	return s.getByID(ctx, id)
}

func (s *sessionService) Complete(ctx context.Context, id string) (*model.CourseSession, error) {
	session, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !session.Status.CanTransitionTo(model.SessionStatusCompleted) {
		return nil, apperrors.InvalidTransition("session", string(session.Status), string(model.SessionStatusCompleted))
	}

	unset := bson.M{
		"meeting_id":       "",
		"meeting_join_url": "",
		"meeting_host_url": "",
	}
	if err := s.transition(ctx, session, model.SessionStatusCompleted, nil, unset); err != nil {
		return nil, err
	}

	if session.MeetingID != "" {
		if err := s.meet.EndMeeting(ctx, session.MeetingID); err != nil {
			s.cfg.Log.Warn("Failed to end meeting", "meeting_id", session.MeetingID, "error", err)
		}
	}

	s.cfg.Log.Info("Session completed", "id", session.ID, "lesson_id", session.LessonID, "session_number", session.SessionNumber)
	s.publish(ctx, events.Event{
		Type:          events.TypeSessionCompleted,
		LessonID:      session.LessonID,
		TeacherID:     session.TeacherID,
		SessionNumber: session.SessionNumber,
	})

	return s.getByID(ctx, id)
}

func (s *sessionService) AttachRecording(ctx context.Context, id string, url string) (*model.CourseSession, error) {
	session, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionStatusCompleted {
		return nil, apperrors.InvalidInput("A recording can only be attached to a completed session")
	}

	normalized := sanitizer.NormalizeURL(url)
	if normalized == "" {
		return nil, apperrors.InvalidInput("Invalid recording URL")
	}

	if err := s.repo.SetRecording(ctx, id, normalized); err != nil {
		if errors.Is(err, courseserrors.ErrStaleStatus) {
			return nil, apperrors.ConcurrentModification("session")
		}
		return nil, apperrors.Internal("Failed to attach recording", err)
	}

	s.cfg.Log.Info("Recording attached", "id", session.ID, "lesson_id", session.LessonID, "session_number", session.SessionNumber)
	s.publish(ctx, events.Event{
		Type:          events.TypeSessionRecordingAttached,
		LessonID:      session.LessonID,
		TeacherID:     session.TeacherID,
		SessionNumber: session.SessionNumber,
	})

	return s.getByID(ctx, id)
}

func (s *sessionService) ForStudent(ctx context.Context, lessonID, studentID string) ([]model.SessionView, error) {
	if lessonID == "" || studentID == "" {
		return nil, apperrors.InvalidInput("Lesson ID and student ID are required")
	}

	paid, err := s.enrollment.PaidSessions(ctx, lessonID, studentID)
	if err != nil {
		if errors.Is(err, courseserrors.ErrNoEnrollment) {
			return nil, apperrors.Forbidden("Student is not enrolled in this lesson")
		}
		return nil, apperrors.Internal("Failed to resolve enrollment", err)
	}

	sessions, err := s.repo.FindByLesson(ctx, lessonID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve course sessions", err)
	}

	views := make([]model.SessionView, 0, len(sessions))
	for _, session := range sessions {
		view := model.SessionView{
			SessionNumber: session.SessionNumber,
			Status:        session.Status,
			ScheduledAt:   session.ScheduledAt,
			Locked:        session.SessionNumber > paid,
		}
		if !view.Locked {
			view.MeetingJoinURL = session.MeetingJoinURL
			view.RecordingURL = session.RecordingURL
		}
		views = append(views, view)
	}

	return views, nil
}

// --- Helpers ---

func (s *sessionService) getByID(ctx context.Context, id string) (*model.CourseSession, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Session ID cannot be empty")
	}

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, courseserrors.ErrSessionNotFound) {
			return nil, apperrors.NotFoundWithID("Session", id)
		}
		if errors.Is(err, courseserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid session ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve session", err)
	}

	return session, nil
}

func (s *sessionService) transition(ctx context.Context, session *model.CourseSession, to model.SessionStatus, set bson.M, unset bson.M) error {
	if err := s.repo.Transition(ctx, session.ID, session.Status, to, set, unset); err != nil {
		if errors.Is(err, courseserrors.ErrStaleStatus) {
			return apperrors.ConcurrentModification("session")
		}
		return apperrors.Internal("Failed to update session status", err)
	}
	return nil
}

func (s *sessionService) acquireSlotLock(ctx context.Context, teacherID string, startTime time.Time) (string, error) {
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

func (s *sessionService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
