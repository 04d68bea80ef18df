package repository

import (
	"context"
	"errors"
	"fmt"

	courseserrors "tutorhub/internal/courses/errors"
	"tutorhub/pkg/config"
	"tutorhub/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnrollmentReader resolves how many sessions a student has paid for on a
// lesson. It reads the booking that enrolled the student; a student without
// an active booking is not enrolled.
type EnrollmentReader interface {
	PaidSessions(ctx context.Context, lessonID, studentID string) (int, error)
}

type mongoEnrollmentReader struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoEnrollmentReader(cfg *config.Config) EnrollmentReader {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEnrollmentReader{
		cfg:        cfg,
		collection: db.Collection("Bookings"),
	}
}

func (r *mongoEnrollmentReader) PaidSessions(ctx context.Context, lessonID, studentID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"lesson_id":  lessonID,
		"student_id": studentID,
		"status":     bson.M{"$nin": []model.BookingStatus{model.BookingStatusCancelled, model.BookingStatusCompleted}},
	}

	opts := options.FindOne().SetProjection(bson.M{"paid_sessions": 1})

	var result struct {
		PaidSessions int `bson:"paid_sessions"`
	}
	err := r.collection.FindOne(ctx, filter, opts).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, courseserrors.ErrNoEnrollment
		}
		return 0, fmt.Errorf("failed to read enrollment: %w", err)
	}

	return result.PaidSessions, nil
}
