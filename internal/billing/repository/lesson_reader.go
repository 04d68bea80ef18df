package repository

import (
	"context"
	"errors"
	"fmt"

	billingerrors "tutorhub/internal/billing/errors"
	"tutorhub/pkg/config"
	"tutorhub/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// LessonReader resolves the lesson a purchase is buying. Billing only reads
// lessons; the catalog is owned by the courses service.
type LessonReader interface {
	FindLessonByID(ctx context.Context, id string) (*model.Lesson, error)
}

type mongoLessonReader struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLessonReader(cfg *config.Config) LessonReader {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLessonReader{
		cfg:        cfg,
		collection: db.Collection("Lessons"),
	}
}

func (r *mongoLessonReader) FindLessonByID(ctx context.Context, id string) (*model.Lesson, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", billingerrors.ErrInvalidID, id)
	}

	var lesson model.Lesson
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&lesson)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, billingerrors.ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to find lesson: %w", err)
	}

	return &lesson, nil
}
