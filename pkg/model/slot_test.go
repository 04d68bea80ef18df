package model

import (
	"testing"
	"time"
)

func slotAt(hour, min, durationMin int) TimeSlot {
	return TimeSlot{
		Start:       time.Date(2026, 9, 1, hour, min, 0, 0, time.UTC),
		DurationMin: durationMin,
	}
}

func TestTimeSlot_End(t *testing.T) {
	s := slotAt(10, 0, 90)
	want := time.Date(2026, 9, 1, 11, 30, 0, 0, time.UTC)
	if !s.End().Equal(want) {
		t.Errorf("End() = %v, want %v", s.End(), want)
	}
}

func TestTimeSlot_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeSlot
		want bool
	}{
		{
			name: "identical slots",
			a:    slotAt(10, 0, 60),
			b:    slotAt(10, 0, 60),
			want: true,
		},
		{
			name: "partial overlap",
			a:    slotAt(10, 0, 60),
			b:    slotAt(10, 30, 60),
			want: true,
		},
		{
			name: "contained slot",
			a:    slotAt(10, 0, 120),
			b:    slotAt(10, 30, 30),
			want: true,
		},
		{
			name: "touching endpoints do not overlap",
			a:    slotAt(10, 0, 60),
			b:    slotAt(11, 0, 60),
			want: false,
		},
		{
			name: "touching endpoints reversed",
			a:    slotAt(11, 0, 60),
			b:    slotAt(10, 0, 60),
			want: false,
		},
		{
			name: "disjoint slots",
			a:    slotAt(9, 0, 30),
			b:    slotAt(14, 0, 30),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() not symmetric: reversed = %v, want %v", got, tt.want)
			}
		})
	}
}
