package seeder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/dealflow-backend/internal/domain"
)

// DefaultTargets are applied to quarters that have no goal yet
type DefaultTargets struct {
	Deals      int
	Investment decimal.Decimal
}

// GoalSeeder makes sure every quarter of a year has an investment goal
type GoalSeeder struct {
	repo     domain.GoalRepository
	defaults DefaultTargets
}

// NewGoalSeeder creates a new GoalSeeder instance
func NewGoalSeeder(repo domain.GoalRepository, defaults DefaultTargets) *GoalSeeder {
	return &GoalSeeder{
		repo:     repo,
		defaults: defaults,
	}
}

// Seed creates the missing goals for year using the default targets
// Goals that already exist are never overwritten, even when another replica
// writes one concurrently. Returns the number of goals created.
func (s *GoalSeeder) Seed(ctx context.Context, year int) (int, error) {
	created := 0

	for q := 1; q <= 4; q++ {
		goal := &domain.InvestmentGoal{
			ID:               uuid.New(),
			Year:             year,
			Quarter:          q,
			TargetDeals:      s.defaults.Deals,
			TargetInvestment: s.defaults.Investment,
		}

		// Validate before creating
		if err := goal.Validate(); err != nil {
			return created, err
		}

		inserted, err := s.repo.CreateIfAbsent(ctx, goal)
		if err != nil {
			return created, fmt.Errorf("failed to seed goal for %d-Q%d: %w", year, q, err)
		}
		if inserted {
			created++
		}
	}

	return created, nil
}
