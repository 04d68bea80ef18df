package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	courseserrors "tutorhub/internal/courses/errors"
	"tutorhub/pkg/config"
	mongotx "tutorhub/pkg/db/mongo"
	"tutorhub/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SessionCollectionName = "Course_sessions"
)

type SessionRepository interface {
	CreateMany(ctx context.Context, sessions []*model.CourseSession) error
	FindByID(ctx context.Context, id string) (*model.CourseSession, error)
	FindByLesson(ctx context.Context, lessonID string) ([]*model.CourseSession, error)

	// Transition updates a session only if its status still equals from. A
	// miss on an existing session means it moved concurrently. Scheduling a
	// pending session passes from == to with a scheduled_at set.
	Transition(ctx context.Context, id string, from, to model.SessionStatus, set bson.M, unset bson.M) error

	// SetRecording attaches a recording URL, only while the session is
	// completed. Overwriting an earlier recording is allowed.
	SetRecording(ctx context.Context, id string, url string) error

	// SetLessonActive syncs the denormalized lesson_active flag on every
	// session of the lesson. Called when a lesson is (de)activated.
	SetLessonActive(ctx context.Context, lessonID string, active bool) error

	// CommittedSlots implements scheduling.SlotSource over scheduled sessions
	// that have not yet completed.
	CommittedSlots(ctx context.Context, teacherID string, from, to time.Time) ([]model.CommittedSlot, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSessionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSessionRepository(cfg *config.Config) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:        cfg,
		collection: db.Collection(SessionCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoSessionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSessionRepository) CreateMany(ctx context.Context, sessions []*model.CourseSession) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(sessions))
	for _, session := range sessions {
		session.CreatedAt = now
		session.UpdatedAt = now
		docs = append(docs, session)
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert course sessions: %w", err)
	}

	return nil
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*model.CourseSession, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", courseserrors.ErrInvalidID, id)
	}

	var session model.CourseSession
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, courseserrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find course session: %w", err)
	}

	return &session, nil
}

func (r *mongoSessionRepository) FindByLesson(ctx context.Context, lessonID string) ([]*model.CourseSession, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "session_number", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"lesson_id": lessonID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find course sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.CourseSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode course sessions: %w", err)
	}

	return sessions, nil
}

func (r *mongoSessionRepository) Transition(ctx context.Context, id string, from, to model.SessionStatus, set bson.M, unset bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", courseserrors.ErrInvalidID, id)
	}

	if set == nil {
		set = bson.M{}
	}
	set["status"] = to
	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": from}, update)
	if err != nil {
		return fmt.Errorf("failed to transition course session: %w", err)
	}

	if result.MatchedCount == 0 {
		return courseserrors.ErrStaleStatus
	}

	return nil
}

func (r *mongoSessionRepository) SetRecording(ctx context.Context, id string, url string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", courseserrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{
		"recording_url": url,
		"updated_at":    time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": model.SessionStatusCompleted}, update)
	if err != nil {
		return fmt.Errorf("failed to set recording: %w", err)
	}

	if result.MatchedCount == 0 {
		return courseserrors.ErrStaleStatus
	}

	return nil
}

func (r *mongoSessionRepository) SetLessonActive(ctx context.Context, lessonID string, active bool) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"lesson_active": active,
		"updated_at":    time.Now().UTC().Truncate(time.Millisecond),
	}}

	if _, err := r.collection.UpdateMany(ctx, bson.M{"lesson_id": lessonID}, update); err != nil {
		return fmt.Errorf("failed to sync lesson active flag: %w", err)
	}

	return nil
}

func (r *mongoSessionRepository) CommittedSlots(ctx context.Context, teacherID string, from, to time.Time) ([]model.CommittedSlot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	// Sessions of a deactivated course hold no slot on the calendar.
	filter := bson.M{
		"teacher_id":    teacherID,
		"lesson_active": true,
		"status":        bson.M{"$in": []model.SessionStatus{model.SessionStatusPending, model.SessionStatusActive}},
		"scheduled_at":  bson.M{"$gte": from, "$lt": to},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find scheduled sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.CourseSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode scheduled sessions: %w", err)
	}

	slots := make([]model.CommittedSlot, 0, len(sessions))
	for _, s := range sessions {
		if s.ScheduledAt == nil {
			continue
		}
		slots = append(slots, model.CommittedSlot{
			RefID: s.ID,
			Label: fmt.Sprintf("%s (session %d)", s.LessonTitle, s.SessionNumber),
			Slot: model.TimeSlot{
				Start:       *s.ScheduledAt,
				DurationMin: s.DurationMin,
			},
		})
	}

	return slots, nil
}

func (r *mongoSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
