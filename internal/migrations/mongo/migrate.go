package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tutorhub/internal/migrations/mongo/validators"
)

var (
	LessonsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "teacher_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "kind", Value: 1}}},
	}

	// One non-terminal booking per (student, lesson). The partial filter keeps
	// completed and cancelled bookings out of the uniqueness constraint so a
	// student can re-purchase a lesson they finished or abandoned.
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "lesson_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": []string{"pending", "accepted", "scheduled"}},
				}),
		},
		{
			Keys: bson.D{{Key: "teacher_id", Value: 1}, {Key: "scheduled_at", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{
					"scheduled_at": bson.M{"$exists": true},
				}),
		},
		{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	CourseSessionsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "lesson_id", Value: 1}, {Key: "session_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "teacher_id", Value: 1}, {Key: "scheduled_at", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{
					"scheduled_at": bson.M{"$exists": true},
				}),
		},
	}

	// external_ref uniqueness is what makes replayed payment confirmations
	// idempotent; the insert of the duplicate fails instead of double-charging.
	InvoicesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "external_ref", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	InstallmentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "number", Value: 1}}},
		{
			Keys:    bson.D{{Key: "invoice_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	SlotLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running TutorHub Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Lessons": {
			Indexes:   LessonsIndexes,
			Validator: validators.LessonValidator,
		},
		"Bookings": {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		"Course_sessions": {
			Indexes:   CourseSessionsIndexes,
			Validator: validators.CourseSessionValidator,
		},
		"Invoices": {
			Indexes:   InvoicesIndexes,
			Validator: validators.InvoiceValidator,
		},
		"Installments": {
			Indexes:   InstallmentsIndexes,
			Validator: validators.InstallmentValidator,
		},
		"Slot_locks": {
			Indexes:   SlotLocksIndexes,
			Validator: validators.SlotLockValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
