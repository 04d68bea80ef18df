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

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error)
	FindByID(ctx context.Context, id string) (*model.Invoice, error)

	// FindByExternalRef deduplicates replayed payment confirmations.
	FindByExternalRef(ctx context.Context, externalRef string) (*model.Invoice, error)

	FindByBooking(ctx context.Context, bookingID string) ([]*model.Invoice, error)

	// MarkPaid and MarkRejected decide a pending invoice. Both filter on
	// pending status; a miss means the invoice was already decided.
	MarkPaid(ctx context.Context, id string) error
	MarkRejected(ctx context.Context, id string, adminNotes string) error
}

type mongoInvoiceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoInvoiceRepository(cfg *config.Config) InvoiceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoInvoiceRepository{
		cfg:        cfg,
		collection: db.Collection("Invoices"),
	}
}

func (r *mongoInvoiceRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoInvoiceRepository) Create(ctx context.Context, invoice *model.Invoice) (*model.Invoice, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	invoice.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, invoice)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invoice: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		invoice.ID = oid.Hex()
	}

	return invoice, nil
}

func (r *mongoInvoiceRepository) FindByID(ctx context.Context, id string) (*model.Invoice, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", billingerrors.ErrInvalidID, id)
	}

	var invoice model.Invoice
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&invoice)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, billingerrors.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}

	return &invoice, nil
}

func (r *mongoInvoiceRepository) FindByExternalRef(ctx context.Context, externalRef string) (*model.Invoice, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var invoice model.Invoice
	err := r.collection.FindOne(ctx, bson.M{"external_ref": externalRef}).Decode(&invoice)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, billingerrors.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to find invoice by external ref: %w", err)
	}

	return &invoice, nil
}

func (r *mongoInvoiceRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.Invoice, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var invoices []*model.Invoice
	if err = cursor.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("failed to decode invoices: %w", err)
	}

	return invoices, nil
}

func (r *mongoInvoiceRepository) MarkPaid(ctx context.Context, id string) error {
	return r.decide(ctx, id, model.InvoiceStatusPaid, "")
}

func (r *mongoInvoiceRepository) MarkRejected(ctx context.Context, id string, adminNotes string) error {
	return r.decide(ctx, id, model.InvoiceStatusRejected, adminNotes)
}

func (r *mongoInvoiceRepository) decide(ctx context.Context, id string, status model.InvoiceStatus, adminNotes string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", billingerrors.ErrInvalidID, id)
	}

	set := bson.M{
		"status":     status,
		"decided_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	if adminNotes != "" {
		set["admin_notes"] = adminNotes
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": model.InvoiceStatusPending}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to decide invoice: %w", err)
	}

	if result.MatchedCount == 0 {
		return billingerrors.ErrStaleStatus
	}

	return nil
}
