package service

import (
	"context"
	"testing"

	courseserrors "tutorhub/internal/courses/errors"
	"tutorhub/internal/courses/validator"
	mongotx "tutorhub/pkg/db/mongo"
	apperrors "tutorhub/pkg/errors"
	"tutorhub/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockLessonRepository struct {
	createFunc   func(ctx context.Context, lesson *model.Lesson) (*model.Lesson, error)
	findByIDFunc func(ctx context.Context, id string) (*model.Lesson, error)
	updateFunc   func(ctx context.Context, id string, updates *model.LessonUpdate) error
}

func (m *mockLessonRepository) Create(ctx context.Context, lesson *model.Lesson) (*model.Lesson, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lesson)
	}
	lesson.ID = "64a000000000000000000001"
	return lesson, nil
}

func (m *mockLessonRepository) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, courseserrors.ErrLessonNotFound
}

func (m *mockLessonRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Lesson, error) {
	return []*model.Lesson{}, nil
}

func (m *mockLessonRepository) FindByTeacher(ctx context.Context, teacherID string, limit int, offset int64) ([]*model.Lesson, error) {
	return []*model.Lesson{}, nil
}

func (m *mockLessonRepository) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockLessonRepository) CountByTeacher(ctx context.Context, teacherID string) (int64, error) {
	return 0, nil
}

func (m *mockLessonRepository) Update(ctx context.Context, id string, updates *model.LessonUpdate) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, updates)
	}
	return nil
}

func (m *mockLessonRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

func newTestLessonService(repo *mockLessonRepository, sessionRepo *mockSessionRepository) *lessonService {
	cfg := testConfig()
	return &lessonService{
		repo:        repo,
		sessionRepo: sessionRepo,
		validator:   validator.NewLessonValidator(cfg.Log),
		cfg:         cfg,
	}
}

func groupCourse() *model.Lesson {
	return &model.Lesson{
		TeacherID:     "64a000000000000000000099",
		Title:         "  spanish   for beginners ",
		Kind:          model.LessonKindGroupCourse,
		DurationMin:   60,
		TotalSessions: 12,
		PriceCents:    24000,
	}
}

func TestCreateLesson_GroupCoursePreCreatesSessions(t *testing.T) {
	var created []*model.CourseSession
	sessionRepo := &mockSessionRepository{
		createManyFunc: func(ctx context.Context, sessions []*model.CourseSession) error {
			created = sessions
			return nil
		},
	}
	svc := newTestLessonService(&mockLessonRepository{}, sessionRepo)

	lesson := groupCourse()
	if err := svc.Create(context.Background(), lesson); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(created) != 12 {
		t.Fatalf("expected 12 pending session rows, got %d", len(created))
	}
	for i, session := range created {
		if session.SessionNumber != i+1 {
			t.Errorf("row %d: expected session_number %d, got %d", i, i+1, session.SessionNumber)
		}
		if session.Status != model.SessionStatusPending {
			t.Errorf("row %d: expected pending status, got %s", i, session.Status)
		}
		if session.LessonID != lesson.ID {
			t.Errorf("row %d: expected lesson_id %s, got %s", i, lesson.ID, session.LessonID)
		}
		if !session.LessonActive {
			t.Errorf("row %d: expected lesson_active to be set", i)
		}
	}
}

func TestUpdateLesson_DeactivationPropagatesToSessions(t *testing.T) {
	existing := groupCourse()
	existing.ID = "64a000000000000000000001"
	existing.Title = "Spanish for Beginners"
	existing.Active = true
	repo := &mockLessonRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lesson, error) {
			return existing, nil
		},
	}

	var syncedLessonID string
	var syncedActive bool
	syncCalls := 0
	sessionRepo := &mockSessionRepository{
		setLessonActiveFunc: func(ctx context.Context, lessonID string, active bool) error {
			syncCalls++
			syncedLessonID = lessonID
			syncedActive = active
			return nil
		},
	}
	svc := newTestLessonService(repo, sessionRepo)

	inactive := false
	if err := svc.Update(context.Background(), existing.ID, &model.LessonUpdate{Active: &inactive}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if syncCalls != 1 || syncedLessonID != existing.ID || syncedActive {
		t.Errorf("expected sessions marked inactive for %s, got calls=%d lesson=%s active=%v",
			existing.ID, syncCalls, syncedLessonID, syncedActive)
	}
}

func TestUpdateLesson_TitleChangeSkipsSessionSync(t *testing.T) {
	existing := groupCourse()
	existing.ID = "64a000000000000000000001"
	existing.Title = "Spanish for Beginners"
	existing.Active = true
	repo := &mockLessonRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lesson, error) {
			return existing, nil
		},
	}

	syncCalls := 0
	sessionRepo := &mockSessionRepository{
		setLessonActiveFunc: func(ctx context.Context, lessonID string, active bool) error {
			syncCalls++
			return nil
		},
	}
	svc := newTestLessonService(repo, sessionRepo)

	if err := svc.Update(context.Background(), existing.ID, &model.LessonUpdate{Title: "Spanish Conversation"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if syncCalls != 0 {
		t.Errorf("title-only update must not touch session rows, got %d sync calls", syncCalls)
	}
}

func TestCreateLesson_SanitizesTitle(t *testing.T) {
	svc := newTestLessonService(&mockLessonRepository{}, &mockSessionRepository{})

	lesson := groupCourse()
	if err := svc.Create(context.Background(), lesson); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lesson.Title != "spanish for beginners" {
		t.Errorf("expected normalized title, got %q", lesson.Title)
	}
}

func TestCreateLesson_UnsupportedSessionCount(t *testing.T) {
	svc := newTestLessonService(&mockLessonRepository{}, &mockSessionRepository{})

	lesson := groupCourse()
	lesson.TotalSessions = 51

	err := svc.Create(context.Background(), lesson)
	if err == nil {
		t.Fatal("expected an error for 51 sessions")
	}
	// Struct validation caps total_sessions at 50 before the planner runs.
	if !apperrors.IsCode(err, apperrors.CodeValidation) && !apperrors.IsCode(err, apperrors.CodeUnsupportedSessionCount) {
		t.Fatalf("expected validation or unsupported session count error, got %v", err)
	}
}

func TestCreateLesson_IndividualSkipsSessionRows(t *testing.T) {
	createManyCalled := false
	sessionRepo := &mockSessionRepository{
		createManyFunc: func(ctx context.Context, sessions []*model.CourseSession) error {
			createManyCalled = true
			return nil
		},
	}
	svc := newTestLessonService(&mockLessonRepository{}, sessionRepo)

	lesson := groupCourse()
	lesson.Kind = model.LessonKindIndividual
	lesson.TotalSessions = 0

	if err := svc.Create(context.Background(), lesson); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if createManyCalled {
		t.Error("individual lessons must not pre-create session rows")
	}
}

func TestUpdateLesson_NotFound(t *testing.T) {
	svc := newTestLessonService(&mockLessonRepository{}, &mockSessionRepository{})

	active := false
	err := svc.Update(context.Background(), "64a000000000000000000001", &model.LessonUpdate{Active: &active})
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected %s, got %v", apperrors.CodeNotFound, err)
	}
}
