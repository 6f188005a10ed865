package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/dealflow-backend/internal/domain"
)

// goalRepository implements domain.GoalRepository using PostgreSQL
type goalRepository struct {
	db *DB
}

// NewGoalRepository creates a new PostgreSQL goal repository
func NewGoalRepository(db *DB) domain.GoalRepository {
	return &goalRepository{db: db}
}

const (
	upsertGoalQuery = `
		INSERT INTO investment_goals (id, year, quarter, target_deals, target_investment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (year, quarter) DO UPDATE SET
			target_deals = EXCLUDED.target_deals,
			target_investment = EXCLUDED.target_investment
		RETURNING id
	`

	insertGoalIfAbsentQuery = `
		INSERT INTO investment_goals (id, year, quarter, target_deals, target_investment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (year, quarter) DO NOTHING
	`

	getGoalQuery = `
		SELECT id, year, quarter, target_deals, target_investment
		FROM investment_goals
		WHERE year = $1 AND quarter = $2
	`

	listGoalsByYearQuery = `
		SELECT id, year, quarter, target_deals, target_investment
		FROM investment_goals
		WHERE year = $1
		ORDER BY quarter
	`
)

// Upsert creates or replaces the goal for the goal's (year, quarter)
func (r *goalRepository) Upsert(ctx context.Context, goal *domain.InvestmentGoal) error {
	if err := goal.Validate(); err != nil {
		return err
	}

	err := r.db.QueryRowContext(ctx, upsertGoalQuery,
		goal.ID,
		goal.Year,
		goal.Quarter,
		goal.TargetDeals,
		goal.TargetInvestment.String(),
	).Scan(&goal.ID)
	if err != nil {
		return mapWriteError(err, "upsert goal")
	}

	return nil
}

// CreateIfAbsent inserts the goal unless its (year, quarter) already has one
func (r *goalRepository) CreateIfAbsent(ctx context.Context, goal *domain.InvestmentGoal) (bool, error) {
	if err := goal.Validate(); err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, insertGoalIfAbsentQuery,
		goal.ID,
		goal.Year,
		goal.Quarter,
		goal.TargetDeals,
		goal.TargetInvestment.String(),
	)
	if err != nil {
		return false, mapWriteError(err, "insert goal")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected == 1, nil
}

// Get retrieves the goal for a (year, quarter)
func (r *goalRepository) Get(ctx context.Context, year, quarter int) (*domain.InvestmentGoal, error) {
	goal, err := scanGoal(r.db.QueryRowContext(ctx, getGoalQuery, year, quarter))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("goal %d-Q%d: %w", year, quarter, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return goal, nil
}

// ListByYear retrieves all goals for a year ordered by quarter
func (r *goalRepository) ListByYear(ctx context.Context, year int) ([]*domain.InvestmentGoal, error) {
	rows, err := r.db.QueryContext(ctx, listGoalsByYearQuery, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	goals := make([]*domain.InvestmentGoal, 0, 4)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}

func scanGoal(row rowScanner) (*domain.InvestmentGoal, error) {
	var goal domain.InvestmentGoal
	var targetStr string

	if err := row.Scan(&goal.ID, &goal.Year, &goal.Quarter, &goal.TargetDeals, &targetStr); err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target investment: %w", err)
	}
	goal.TargetInvestment = target

	return &goal, nil
}
