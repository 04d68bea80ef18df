// Package scheduling holds the conflict checker shared by individual-lesson
// booking and course-session planning. The checker itself is store-agnostic;
// each caller plugs in the slot sources relevant to the teacher's calendar.
package scheduling

import (
	"context"
	"time"

	"tutorhub/pkg/errors"
	"tutorhub/pkg/logger"
	"tutorhub/pkg/model"
)

// maxSlotWindow bounds how far back a committed slot can start and still
// reach into the proposed one. Matches the maximum lesson duration.
const maxSlotWindow = 480 * time.Minute

// SlotSource yields a teacher's committed slots inside a time window.
// Implementations exist over scheduled bookings and planned course sessions.
type SlotSource interface {
	CommittedSlots(ctx context.Context, teacherID string, from, to time.Time) ([]model.CommittedSlot, error)
}

type Checker struct {
	sources []SlotSource
	log     *logger.Logger
	now     func() time.Time
}

func NewChecker(log *logger.Logger, sources ...SlotSource) *Checker {
	return &Checker{
		sources: sources,
		log:     log,
		now:     time.Now,
	}
}

// Check validates a proposed slot for a teacher against every source.
// A slot starting in the past is rejected outright. excludeRefIDs names
// records being edited, so a slot never conflicts with itself.
//
// Touching endpoints are allowed: a slot may start exactly when another ends.
func (c *Checker) Check(ctx context.Context, teacherID string, proposed model.TimeSlot, excludeRefIDs ...string) error {
	if proposed.Start.Before(c.now()) {
		return errors.PastDate(proposed.Start)
	}

	excluded := make(map[string]struct{}, len(excludeRefIDs))
	for _, id := range excludeRefIDs {
		excluded[id] = struct{}{}
	}

	from := proposed.Start.Add(-maxSlotWindow)
	to := proposed.End()

	for _, src := range c.sources {
		committed, err := src.CommittedSlots(ctx, teacherID, from, to)
		if err != nil {
			return errors.Internal("Failed to load committed slots", err)
		}
		for _, cs := range committed {
			if _, ok := excluded[cs.RefID]; ok {
				continue
			}
			if proposed.Overlaps(cs.Slot) {
				c.log.Warn("Slot conflict detected",
					"teacher_id", teacherID,
					"proposed_start", proposed.Start,
					"conflicts_with", cs.Label,
				)
				return errors.SlotOverlap(cs.Label, cs.Slot.Start)
			}
		}
	}

	return nil
}
