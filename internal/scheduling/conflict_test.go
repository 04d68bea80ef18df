package scheduling

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"tutorhub/pkg/errors"
	"tutorhub/pkg/logger"
	"tutorhub/pkg/model"
)

type stubSlotSource struct {
	CommittedSlotsFunc func(ctx context.Context, teacherID string, from, to time.Time) ([]model.CommittedSlot, error)
}

func (s *stubSlotSource) CommittedSlots(ctx context.Context, teacherID string, from, to time.Time) ([]model.CommittedSlot, error) {
	return s.CommittedSlotsFunc(ctx, teacherID, from, to)
}

func testChecker(sources ...SlotSource) *Checker {
	c := NewChecker(logger.New(logger.Config{Service: "scheduling-test"}), sources...)
	c.now = func() time.Time {
		return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	}
	return c
}

func fixedSlots(slots ...model.CommittedSlot) *stubSlotSource {
	return &stubSlotSource{
		CommittedSlotsFunc: func(context.Context, string, time.Time, time.Time) ([]model.CommittedSlot, error) {
			return slots, nil
		},
	}
}

func TestChecker_Check_PastDate(t *testing.T) {
	checker := testChecker(fixedSlots())

	past := model.TimeSlot{
		Start:       time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC),
		DurationMin: 60,
	}
	err := checker.Check(context.Background(), "teacher-1", past)
	if !errors.IsCode(err, errors.CodePastDate) {
		t.Fatalf("expected PAST_DATE error, got %v", err)
	}
}

func TestChecker_Check_Overlap(t *testing.T) {
	committed := model.CommittedSlot{
		RefID: "booking-1",
		Label: "Algebra II",
		Slot: model.TimeSlot{
			Start:       time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			DurationMin: 60,
		},
	}
	checker := testChecker(fixedSlots(committed))

	proposed := model.TimeSlot{
		Start:       time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC),
		DurationMin: 60,
	}
	err := checker.Check(context.Background(), "teacher-1", proposed)
	if !errors.IsCode(err, errors.CodeSlotOverlap) {
		t.Fatalf("expected SLOT_OVERLAP error, got %v", err)
	}

	appErr := errors.AsAppError(err)
	if appErr.Details["conflicts_with"] != "Algebra II" {
		t.Errorf("conflicts_with = %v, want Algebra II", appErr.Details["conflicts_with"])
	}
}

func TestChecker_Check_TouchingEndpointsAllowed(t *testing.T) {
	committed := model.CommittedSlot{
		RefID: "booking-1",
		Label: "Algebra II",
		Slot: model.TimeSlot{
			Start:       time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			DurationMin: 60,
		},
	}
	checker := testChecker(fixedSlots(committed))

	adjacent := model.TimeSlot{
		Start:       time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC),
		DurationMin: 60,
	}
	if err := checker.Check(context.Background(), "teacher-1", adjacent); err != nil {
		t.Fatalf("adjacent slot should not conflict, got %v", err)
	}
}

func TestChecker_Check_ExcludesEditedRecord(t *testing.T) {
	committed := model.CommittedSlot{
		RefID: "booking-1",
		Label: "Algebra II",
		Slot: model.TimeSlot{
			Start:       time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			DurationMin: 60,
		},
	}
	checker := testChecker(fixedSlots(committed))

	// Rescheduling booking-1 to a slot that overlaps its own old one.
	proposed := model.TimeSlot{
		Start:       time.Date(2026, 9, 1, 10, 15, 0, 0, time.UTC),
		DurationMin: 60,
	}
	if err := checker.Check(context.Background(), "teacher-1", proposed, "booking-1"); err != nil {
		t.Fatalf("edited record should not conflict with itself, got %v", err)
	}
}

func TestChecker_Check_MultipleSources(t *testing.T) {
	bookings := fixedSlots()
	sessions := fixedSlots(model.CommittedSlot{
		RefID: "session-7",
		Label: "Physics, session 7",
		Slot: model.TimeSlot{
			Start:       time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
			DurationMin: 90,
		},
	})
	checker := testChecker(bookings, sessions)

	proposed := model.TimeSlot{
		Start:       time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC),
		DurationMin: 60,
	}
	err := checker.Check(context.Background(), "teacher-1", proposed)
	if !errors.IsCode(err, errors.CodeSlotOverlap) {
		t.Fatalf("expected SLOT_OVERLAP from second source, got %v", err)
	}
}

// TestChecker_Check_RandomizedCalendar builds random teacher calendars and
// checks both directions of the overlap rule: a candidate filling a free gap
// is accepted even when it touches its neighbours, and a candidate cutting
// into any committed slot is rejected. Seeded so a failure reproduces.
func TestChecker_Check_RandomizedCalendar(t *testing.T) {
	rng := rand.New(rand.NewSource(20260901))
	base := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	for round := 0; round < 50; round++ {
		cursor := base
		committed := make([]model.CommittedSlot, 0, 12)
		gaps := make([]model.TimeSlot, 0, 12)
		for i := 0; i < 12; i++ {
			gapMin := 15 + rng.Intn(106)
			gaps = append(gaps, model.TimeSlot{Start: cursor, DurationMin: gapMin})
			cursor = cursor.Add(time.Duration(gapMin) * time.Minute)

			duration := 30 + rng.Intn(91)
			committed = append(committed, model.CommittedSlot{
				RefID: fmt.Sprintf("booking-%d", i),
				Label: fmt.Sprintf("Lesson %d", i),
				Slot:  model.TimeSlot{Start: cursor, DurationMin: duration},
			})
			cursor = cursor.Add(time.Duration(duration) * time.Minute)
		}
		checker := testChecker(fixedSlots(committed...))

		gap := gaps[rng.Intn(len(gaps))]
		if err := checker.Check(context.Background(), "teacher-1", gap); err != nil {
			t.Fatalf("round %d: free gap %v rejected: %v", round, gap, err)
		}

		target := committed[rng.Intn(len(committed))].Slot

		// Starts inside the committed slot.
		offset := time.Duration(rng.Intn(target.DurationMin)) * time.Minute
		inside := model.TimeSlot{Start: target.Start.Add(offset), DurationMin: 1 + rng.Intn(120)}
		if err := checker.Check(context.Background(), "teacher-1", inside); !errors.IsCode(err, errors.CodeSlotOverlap) {
			t.Fatalf("round %d: candidate %v inside %v: want SLOT_OVERLAP, got %v", round, inside, target, err)
		}

		// Starts before the committed slot and runs into it.
		lead := 1 + rng.Intn(14)
		spanning := model.TimeSlot{Start: target.Start.Add(-time.Duration(lead) * time.Minute), DurationMin: lead + 1 + rng.Intn(60)}
		if err := checker.Check(context.Background(), "teacher-1", spanning); !errors.IsCode(err, errors.CodeSlotOverlap) {
			t.Fatalf("round %d: candidate %v spanning into %v: want SLOT_OVERLAP, got %v", round, spanning, target, err)
		}
	}
}

func TestChecker_Check_SourceError(t *testing.T) {
	failing := &stubSlotSource{
		CommittedSlotsFunc: func(context.Context, string, time.Time, time.Time) ([]model.CommittedSlot, error) {
			return nil, errors.Internal("query failed", nil)
		},
	}
	checker := testChecker(failing)

	proposed := model.TimeSlot{
		Start:       time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		DurationMin: 60,
	}
	err := checker.Check(context.Background(), "teacher-1", proposed)
	if !errors.IsCode(err, errors.CodeInternal) {
		t.Fatalf("expected INTERNAL error, got %v", err)
	}
}
