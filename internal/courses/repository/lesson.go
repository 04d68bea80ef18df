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
	LessonCollectionName = "Lessons"
)

type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) (*model.Lesson, error)
	FindByID(ctx context.Context, id string) (*model.Lesson, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Lesson, error)
	FindByTeacher(ctx context.Context, teacherID string, limit int, offset int64) ([]*model.Lesson, error)
	Count(ctx context.Context) (int64, error)
	CountByTeacher(ctx context.Context, teacherID string) (int64, error)
	Update(ctx context.Context, id string, updates *model.LessonUpdate) error

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoLessonRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoLessonRepository(cfg *config.Config) LessonRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLessonRepository{
		cfg:        cfg,
		collection: db.Collection(LessonCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoLessonRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoLessonRepository) Create(ctx context.Context, lesson *model.Lesson) (*model.Lesson, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	lesson.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, lesson)
	if err != nil {
		return nil, fmt.Errorf("failed to insert lesson: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		lesson.ID = oid.Hex()
	}

	return lesson, nil
}

func (r *mongoLessonRepository) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", courseserrors.ErrInvalidID, id)
	}

	var lesson model.Lesson
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&lesson)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, courseserrors.ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to find lesson: %w", err)
	}

	return &lesson, nil
}

func (r *mongoLessonRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Lesson, error) {
	return r.find(ctx, bson.M{}, limit, offset)
}

func (r *mongoLessonRepository) FindByTeacher(ctx context.Context, teacherID string, limit int, offset int64) ([]*model.Lesson, error) {
	return r.find(ctx, bson.M{"teacher_id": teacherID}, limit, offset)
}

func (r *mongoLessonRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Lesson, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find lessons: %w", err)
	}
	defer cursor.Close(ctx)

	var lessons []*model.Lesson
	if err = cursor.All(ctx, &lessons); err != nil {
		return nil, fmt.Errorf("failed to decode lessons: %w", err)
	}

	return lessons, nil
}

func (r *mongoLessonRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}

	return count, nil
}

func (r *mongoLessonRepository) CountByTeacher(ctx context.Context, teacherID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"teacher_id": teacherID})
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons by teacher: %w", err)
	}

	return count, nil
}

func (r *mongoLessonRepository) Update(ctx context.Context, id string, updates *model.LessonUpdate) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", courseserrors.ErrInvalidID, id)
	}

	set := bson.M{}
	if updates.Title != "" {
		set["title"] = updates.Title
	}
	if updates.DurationMin != nil {
		set["duration_min"] = *updates.DurationMin
	}
	if updates.PriceCents != nil {
		set["price_cents"] = *updates.PriceCents
	}
	if updates.Active != nil {
		set["active"] = *updates.Active
	}
	if len(set) == 0 {
		return nil
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}

	if result.MatchedCount == 0 {
		return courseserrors.ErrLessonNotFound
	}

	return nil
}

func (r *mongoLessonRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
