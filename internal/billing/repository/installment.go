package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	billingerrors "tutorhub/internal/billing/errors"
	"tutorhub/pkg/config"
	"tutorhub/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type InstallmentRepository interface {
	Create(ctx context.Context, installment *model.Installment) (*model.Installment, error)
	FindByBooking(ctx context.Context, bookingID string) ([]*model.Installment, error)
	FindByInvoice(ctx context.Context, invoiceID string) (*model.Installment, error)

	// CountNonRejected counts submitted rows that still count toward the
	// plan. Rejected rows are retryable and do not consume their number.
	CountNonRejected(ctx context.Context, bookingID string) (int64, error)

	MarkPaid(ctx context.Context, id string) error
	MarkRejected(ctx context.Context, id string) error
}

type mongoInstallmentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoInstallmentRepository(cfg *config.Config) InstallmentRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoInstallmentRepository{
		cfg:        cfg,
		collection: db.Collection("Installments"),
	}
}

func (r *mongoInstallmentRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoInstallmentRepository) Create(ctx context.Context, installment *model.Installment) (*model.Installment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	installment.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, installment)
	if err != nil {
		return nil, fmt.Errorf("failed to insert installment: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		installment.ID = oid.Hex()
	}

	return installment, nil
}

func (r *mongoInstallmentRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.Installment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}, {Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find installments: %w", err)
	}
	defer cursor.Close(ctx)

	var installments []*model.Installment
	if err = cursor.All(ctx, &installments); err != nil {
		return nil, fmt.Errorf("failed to decode installments: %w", err)
	}

	return installments, nil
}

func (r *mongoInstallmentRepository) FindByInvoice(ctx context.Context, invoiceID string) (*model.Installment, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var installment model.Installment
	err := r.collection.FindOne(ctx, bson.M{"invoice_id": invoiceID}).Decode(&installment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, billingerrors.ErrInstallmentNotFound
		}
		return nil, fmt.Errorf("failed to find installment by invoice: %w", err)
	}

	return &installment, nil
}

func (r *mongoInstallmentRepository) CountNonRejected(ctx context.Context, bookingID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"booking_id": bookingID,
		"status":     bson.M{"$ne": model.InstallmentStatusRejected},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count installments: %w", err)
	}

	return count, nil
}

func (r *mongoInstallmentRepository) MarkPaid(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", billingerrors.ErrInvalidID, id)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{"$set": bson.M{
		"status":  model.InstallmentStatusPaid,
		"paid_at": now,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": model.InstallmentStatusPending}, update)
	if err != nil {
		return fmt.Errorf("failed to mark installment paid: %w", err)
	}

	if result.MatchedCount == 0 {
		return billingerrors.ErrStaleStatus
	}

	return nil
}

func (r *mongoInstallmentRepository) MarkRejected(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", billingerrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{"status": model.InstallmentStatusRejected}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": model.InstallmentStatusPending}, update)
	if err != nil {
		return fmt.Errorf("failed to mark installment rejected: %w", err)
	}

	if result.MatchedCount == 0 {
		return billingerrors.ErrStaleStatus
	}

	return nil
}
