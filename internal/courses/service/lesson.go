package service

import (
	"context"
	"errors"
	"sync"

	courseserrors "tutorhub/internal/courses/errors"
	"tutorhub/internal/courses/repository"
	"tutorhub/internal/courses/validator"
	"tutorhub/pkg/config"
	apperrors "tutorhub/pkg/errors"
	"tutorhub/pkg/installment"
	"tutorhub/pkg/model"
	"tutorhub/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type LessonService interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Lesson, int64, error)
	GetByTeacher(ctx context.Context, teacherID string, limit int, offset int64) ([]*model.Lesson, int64, error)
	Update(ctx context.Context, id string, updates *model.LessonUpdate) error
}

type lessonService struct {
	repo        repository.LessonRepository
	sessionRepo repository.SessionRepository
	validator   *validator.LessonValidator
	cfg         *config.Config
}

func NewLessonService(
	repo repository.LessonRepository,
	sessionRepo repository.SessionRepository,
	lessonValidator *validator.LessonValidator,
	cfg *config.Config,
) LessonService {
	return &lessonService{
		repo:        repo,
		sessionRepo: sessionRepo,
		validator:   lessonValidator,
		cfg:         cfg,
	}
}

// Create stores the lesson. A group course also pre-creates one pending
// session row per session, in the same transaction, so the course calendar
// exists before anything is scheduled.
func (s *lessonService) Create(ctx context.Context, lesson *model.Lesson) error {
	s.applyDefaults(lesson)
	s.sanitize(lesson)
	if err := s.validate(lesson); err != nil {
		return err
	}

	if lesson.Kind == model.LessonKindGroupCourse {
		// Rejects session counts the installment brackets cannot cover.
		if _, err := installment.Compute(lesson.TotalSessions, lesson.PriceCents); err != nil {
			return err
		}
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.repo.Create(sessCtx, lesson); err != nil {
			return apperrors.Internal("Failed to create lesson", err)
		}

		if lesson.Kind != model.LessonKindGroupCourse {
			return nil
		}

		sessions := make([]*model.CourseSession, 0, lesson.TotalSessions)
		for i := 1; i <= lesson.TotalSessions; i++ {
			sessions = append(sessions, &model.CourseSession{
				LessonID:      lesson.ID,
				LessonTitle:   lesson.Title,
				TeacherID:     lesson.TeacherID,
				SessionNumber: i,
				DurationMin:   lesson.DurationMin,
				Status:        model.SessionStatusPending,
				LessonActive:  true,
			})
		}
		if err := s.sessionRepo.CreateMany(sessCtx, sessions); err != nil {
			return apperrors.Internal("Failed to create course sessions", err)
		}

		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create lesson", "error", err)
		return err
	}

	s.cfg.Log.Info("Lesson created successfully",
		"id", lesson.ID,
		"teacher_id", lesson.TeacherID,
		"kind", lesson.Kind,
		"total_sessions", lesson.TotalSessions,
	)
	return nil
}

func (s *lessonService) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Lesson ID cannot be empty")
	}

	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, courseserrors.ErrLessonNotFound) {
			return nil, apperrors.NotFoundWithID("Lesson", id)
		}
		if errors.Is(err, courseserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid lesson ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve lesson", err)
	}

	return lesson, nil
}

func (s *lessonService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Lesson, int64, error) {
	var count int64
	var lessons []*model.Lesson
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count lessons", "error", errCount)
			errCount = apperrors.Internal("Failed to count lessons", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		lessons, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list lessons", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve lessons", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return lessons, count, nil
}

func (s *lessonService) GetByTeacher(ctx context.Context, teacherID string, limit int, offset int64) ([]*model.Lesson, int64, error) {
	if teacherID == "" {
		return nil, 0, apperrors.InvalidInput("Teacher ID cannot be empty")
	}

	var count int64
	var lessons []*model.Lesson
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByTeacher(ctx, teacherID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count teacher lessons", "teacher_id", teacherID, "error", errCount)
			errCount = apperrors.Internal("Failed to count lessons", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		lessons, errFind = s.repo.FindByTeacher(ctx, teacherID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list teacher lessons", "teacher_id", teacherID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve lessons", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return lessons, count, nil
}

// Update changes presentation fields only. Kind and TotalSessions are fixed
// at creation; session rows already exist for a group course and bookings
// snapshot their plan, so neither can change after the fact.
func (s *lessonService) Update(ctx context.Context, id string, updates *model.LessonUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Lesson ID cannot be empty")
	}

	updates.Title = sanitizer.NormalizeTitle(updates.Title)

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	merged := s.mergeLessonUpdates(existing, updates)
	if err := s.validate(merged); err != nil {
		return err
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Update(sessCtx, id, updates); err != nil {
			if errors.Is(err, courseserrors.ErrLessonNotFound) {
				return apperrors.NotFoundWithID("Lesson", id)
			}
			if errors.Is(err, courseserrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid lesson ID format")
			}
			return apperrors.Internal("Failed to update lesson", err)
		}

		// Session rows mirror the active flag so the conflict checker can
		// filter them without a join; keep the copy in step.
		if updates.Active != nil && existing.Kind == model.LessonKindGroupCourse && *updates.Active != existing.Active {
			if err := s.sessionRepo.SetLessonActive(sessCtx, id, *updates.Active); err != nil {
				return apperrors.Internal("Failed to sync session active flags", err)
			}
		}

		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update lesson", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Lesson updated successfully", "id", id)
	return nil
}

func (s *lessonService) sanitize(l *model.Lesson) {
	l.Title = sanitizer.NormalizeTitle(l.Title)
}

func (s *lessonService) applyDefaults(l *model.Lesson) {
	l.Active = true
	if l.Kind == model.LessonKindIndividual {
		l.TotalSessions = 0
	}
}

func (s *lessonService) mergeLessonUpdates(existing *model.Lesson, updates *model.LessonUpdate) *model.Lesson {
	merged := *existing

	if updates.Title != "" {
		merged.Title = updates.Title
	}
	if updates.DurationMin != nil {
		merged.DurationMin = *updates.DurationMin
	}
	if updates.PriceCents != nil {
		merged.PriceCents = *updates.PriceCents
	}
	if updates.Active != nil {
		merged.Active = *updates.Active
	}

	return &merged
}

func (s *lessonService) validate(lesson *model.Lesson) error {
	if err := s.validator.Validate(lesson); err != nil {
		s.cfg.Log.Warn("Lesson validation failed", "error", err)
		return apperrors.Validation("Lesson validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}
