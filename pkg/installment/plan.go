// Package installment computes payment plans for multi-session courses.
//
// The installment count follows fixed brackets on the course's session count:
// courses of five sessions or fewer are paid up front, larger courses split
// into 2, 4 or 6 equal installments. Amounts are in minor currency units and
// each installment rounds up, so the sum collected is never below the course
// price.
package installment

import (
	"tutorhub/pkg/errors"
)

// MaxSessions is the largest course size a plan can be computed for.
const MaxSessions = 50

// Plan is the payment schedule pinned on a booking at purchase time.
// Installment #1 is collected with the purchase itself; the remaining
// Installments-1 are submitted later, each unlocking SessionsPerInstallment
// more sessions (the final one unlocks whatever remains).
type Plan struct {
	Installments           int   `json:"installments"`
	SessionsPerInstallment int   `json:"sessions_per_installment"`
	AmountPerInstallment   int64 `json:"amount_per_installment_cents"`
	TotalSessions          int   `json:"total_sessions"`
	TotalPrice             int64 `json:"total_price_cents"`
}

// Compute returns the plan for a course, or nil when the course is small
// enough to be paid in a single charge. totalPrice is in minor units.
func Compute(totalSessions int, totalPrice int64) (*Plan, error) {
	if totalSessions < 1 {
		return nil, errors.UnsupportedSessionCount(totalSessions)
	}
	if totalSessions > MaxSessions {
		return nil, errors.UnsupportedSessionCount(totalSessions)
	}

	n := installmentsFor(totalSessions)
	if n == 1 {
		return nil, nil
	}

	return &Plan{
		Installments:           n,
		SessionsPerInstallment: (totalSessions + n - 1) / n,
		AmountPerInstallment:   (totalPrice + int64(n) - 1) / int64(n),
		TotalSessions:          totalSessions,
		TotalPrice:             totalPrice,
	}, nil
}

func installmentsFor(totalSessions int) int {
	switch {
	case totalSessions <= 5:
		return 1
	case totalSessions <= 10:
		return 2
	case totalSessions <= 20:
		return 4
	default:
		return 6
	}
}

// SessionsUnlockedBy returns how many sessions installment number (1-based)
// unlocks. Every installment unlocks SessionsPerInstallment except the last,
// which is capped to the sessions that remain.
func (p *Plan) SessionsUnlockedBy(number int) int {
	if number < 1 || number > p.Installments {
		return 0
	}
	unlockedBefore := (number - 1) * p.SessionsPerInstallment
	remaining := p.TotalSessions - unlockedBefore
	if remaining < p.SessionsPerInstallment {
		return remaining
	}
	return p.SessionsPerInstallment
}
