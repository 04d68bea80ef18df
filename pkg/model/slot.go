package model

import "time"

// TimeSlot is a half-open interval [Start, End). Touching endpoints do not
// overlap, so a lesson ending at 10:00 and one starting at 10:00 coexist.
type TimeSlot struct {
	Start       time.Time `json:"start" bson:"start"`
	DurationMin int       `json:"duration_min" bson:"duration_min"`
}

func (s TimeSlot) End() time.Time {
	return s.Start.Add(time.Duration(s.DurationMin) * time.Minute)
}

func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start.Before(other.End()) && other.Start.Before(s.End())
}

// CommittedSlot is one of a teacher's already-committed slots, flattened for
// conflict checking. RefID identifies the backing booking or course session so
// edits can exclude themselves.
type CommittedSlot struct {
	RefID string
	Label string
	Slot  TimeSlot
}
