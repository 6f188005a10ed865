package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quarter identifies a calendar quarter
type Quarter struct {
	Year int
	Q    int // 1-4
}

// QuarterOf returns the quarter containing t, in t's location
func QuarterOf(t time.Time) Quarter {
	return Quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

// IsValid reports whether Q is between 1 and 4
func (q Quarter) IsValid() bool {
	return q.Q >= 1 && q.Q <= 4
}

// Bounds returns the first and last day of the quarter at midnight in loc
// Both days are inclusive.
func (q Quarter) Bounds(loc *time.Location) (start, end time.Time) {
	startMonth := time.Month((q.Q-1)*3 + 1)
	start = time.Date(q.Year, startMonth, 1, 0, 0, 0, 0, loc)
	// Day 0 of the month after start+2 is the last day of start+2
	end = time.Date(q.Year, startMonth+3, 0, 0, 0, 0, 0, loc)
	return start, end
}

// Contains reports whether t falls on any day of the quarter, evaluated in loc
func (q Quarter) Contains(t time.Time, loc *time.Location) bool {
	return QuarterOf(t.In(loc)) == q
}

// Next returns the following quarter
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

// Prev returns the preceding quarter
func (q Quarter) Prev() Quarter {
	if q.Q == 1 {
		return Quarter{Year: q.Year - 1, Q: 4}
	}
	return Quarter{Year: q.Year, Q: q.Q - 1}
}

func (q Quarter) String() string {
	return fmt.Sprintf("%d-Q%d", q.Year, q.Q)
}

// InvestmentGoal is the target for one (year, quarter). At most one exists per quarter.
type InvestmentGoal struct {
	ID               uuid.UUID
	Year             int
	Quarter          int
	TargetDeals      int
	TargetInvestment decimal.Decimal
}

// Period returns the goal's quarter
func (g *InvestmentGoal) Period() Quarter {
	return Quarter{Year: g.Year, Q: g.Quarter}
}

// Validate ensures the goal adheres to domain rules
func (g *InvestmentGoal) Validate() error {
	if !g.Period().IsValid() {
		return validationError("goal quarter must be between 1 and 4")
	}
	if g.TargetDeals < 0 {
		return validationError("target deals cannot be negative")
	}
	if g.TargetInvestment.IsNegative() {
		return validationError("target investment cannot be negative")
	}
	return nil
}

// QuarterlyActual is derived from deals, never stored
type QuarterlyActual struct {
	Quarter            Quarter
	DealsInvested      int
	TotalInvested      decimal.Decimal
	PortfolioCompanies int
}
