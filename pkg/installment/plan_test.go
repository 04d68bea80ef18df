package installment

import (
	"testing"

	"tutorhub/pkg/errors"
)

func TestCompute_Brackets(t *testing.T) {
	tests := []struct {
		name          string
		totalSessions int
		totalPrice    int64
		wantNil       bool
		wantPlan      Plan
	}{
		{
			name:          "single session pays up front",
			totalSessions: 1,
			totalPrice:    5000,
			wantNil:       true,
		},
		{
			name:          "five sessions pays up front",
			totalSessions: 5,
			totalPrice:    25000,
			wantNil:       true,
		},
		{
			name:          "six sessions splits in two",
			totalSessions: 6,
			totalPrice:    10000,
			wantPlan: Plan{
				Installments:           2,
				SessionsPerInstallment: 3,
				AmountPerInstallment:   5000,
				TotalSessions:          6,
				TotalPrice:             10000,
			},
		},
		{
			name:          "ten sessions splits in two",
			totalSessions: 10,
			totalPrice:    30000,
			wantPlan: Plan{
				Installments:           2,
				SessionsPerInstallment: 5,
				AmountPerInstallment:   15000,
				TotalSessions:          10,
				TotalPrice:             30000,
			},
		},
		{
			name:          "fifteen sessions splits in four",
			totalSessions: 15,
			totalPrice:    30000,
			wantPlan: Plan{
				Installments:           4,
				SessionsPerInstallment: 4,
				AmountPerInstallment:   7500,
				TotalSessions:          15,
				TotalPrice:             30000,
			},
		},
		{
			name:          "twenty-one sessions splits in six",
			totalSessions: 21,
			totalPrice:    63000,
			wantPlan: Plan{
				Installments:           6,
				SessionsPerInstallment: 4,
				AmountPerInstallment:   10500,
				TotalSessions:          21,
				TotalPrice:             63000,
			},
		},
		{
			name:          "fifty sessions splits in six",
			totalSessions: 50,
			totalPrice:    100000,
			wantPlan: Plan{
				Installments:           6,
				SessionsPerInstallment: 9,
				AmountPerInstallment:   16667,
				TotalSessions:          50,
				TotalPrice:             100000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.totalSessions, tt.totalPrice)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Compute() = %+v, want nil plan", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Compute() = nil, want plan")
			}
			if *got != tt.wantPlan {
				t.Errorf("Compute() = %+v, want %+v", *got, tt.wantPlan)
			}
		})
	}
}

func TestCompute_AmountRoundsUp(t *testing.T) {
	// 100.00 over 6 installments: 1667 per installment, never 1666.66 truncated.
	plan, err := Compute(30, 10000)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if plan.AmountPerInstallment != 1667 {
		t.Errorf("AmountPerInstallment = %d, want 1667", plan.AmountPerInstallment)
	}
	if total := plan.AmountPerInstallment * int64(plan.Installments); total < plan.TotalPrice {
		t.Errorf("collected %d is below course price %d", total, plan.TotalPrice)
	}
}

func TestCompute_UnsupportedSessionCount(t *testing.T) {
	for _, n := range []int{0, -1, 51, 200} {
		_, err := Compute(n, 10000)
		if err == nil {
			t.Errorf("Compute(%d) expected error, got nil", n)
			continue
		}
		if !errors.IsCode(err, errors.CodeUnsupportedSessionCount) {
			t.Errorf("Compute(%d) error code = %v, want %s", n, err, errors.CodeUnsupportedSessionCount)
		}
	}
}

func TestPlan_SessionsUnlockedBy(t *testing.T) {
	// 15 sessions over 4 installments of 4: the last unlocks only 3.
	plan, err := Compute(15, 30000)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	wantByNumber := map[int]int{1: 4, 2: 4, 3: 4, 4: 3}
	total := 0
	for number, want := range wantByNumber {
		got := plan.SessionsUnlockedBy(number)
		if got != want {
			t.Errorf("SessionsUnlockedBy(%d) = %d, want %d", number, got, want)
		}
		total += got
	}
	if total != plan.TotalSessions {
		t.Errorf("unlocked total = %d, want %d", total, plan.TotalSessions)
	}

	if got := plan.SessionsUnlockedBy(0); got != 0 {
		t.Errorf("SessionsUnlockedBy(0) = %d, want 0", got)
	}
	if got := plan.SessionsUnlockedBy(5); got != 0 {
		t.Errorf("SessionsUnlockedBy(5) = %d, want 0", got)
	}
}

func TestPlan_UnlocksCoverEveryBracket(t *testing.T) {
	for sessions := 6; sessions <= MaxSessions; sessions++ {
		plan, err := Compute(sessions, int64(sessions)*2500)
		if err != nil {
			t.Fatalf("Compute(%d) error = %v", sessions, err)
		}
		if plan.SessionsPerInstallment < 1 {
			t.Fatalf("Compute(%d): sessions per installment = %d", sessions, plan.SessionsPerInstallment)
		}
		total := 0
		for i := 1; i <= plan.Installments; i++ {
			got := plan.SessionsUnlockedBy(i)
			if got < 0 {
				t.Fatalf("Compute(%d): installment %d unlocks %d sessions", sessions, i, got)
			}
			total += got
		}
		if total != sessions {
			t.Errorf("Compute(%d): unlocked total = %d", sessions, total)
		}
	}
}
