package domain

import (
	"context"

	"github.com/google/uuid"
)

// TransitionFunc computes the next state of a deal from the locked current state
type TransitionFunc func(current Deal) (Deal, error)

// DealRepository defines the interface for deal persistence operations
type DealRepository interface {
	// Create creates a new deal together with its founders
	Create(ctx context.Context, deal *Deal) error

	// GetByID retrieves a deal by its ID
	// Returns an error wrapping ErrNotFound if it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*Deal, error)

	// List retrieves deals, optionally filtered by status
	// If statusFilter is empty, returns all deals
	List(ctx context.Context, statusFilter DealStatus) ([]*Deal, error)

	// Transition reads the deal under a row lock, applies fn and writes the result
	// in the same database transaction. If fn fails nothing is written.
	Transition(ctx context.Context, id uuid.UUID, fn TransitionFunc) (*Deal, error)

	// Update is Transition for status and financial fields
	// Stage and stage-entry stamps are not written.
	Update(ctx context.Context, id uuid.UUID, fn TransitionFunc) (*Deal, error)
}

// VoteRepository defines the interface for vote persistence operations
type VoteRepository interface {
	// Upsert creates a vote, or replaces the partner's existing vote for the same deal
	Upsert(ctx context.Context, vote *Vote) error

	// GetByID retrieves a vote by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Vote, error)

	// ListByDeal retrieves every vote cast for a deal
	ListByDeal(ctx context.Context, dealID uuid.UUID) ([]*Vote, error)

	// Delete removes a vote
	Delete(ctx context.Context, id uuid.UUID) error
}

// GoalRepository defines the interface for investment goal persistence operations
type GoalRepository interface {
	// Upsert creates or replaces the goal for the goal's (year, quarter)
	Upsert(ctx context.Context, goal *InvestmentGoal) error

	// CreateIfAbsent inserts the goal unless its (year, quarter) already has one
	// Reports whether a row was written; an existing goal is left untouched.
	CreateIfAbsent(ctx context.Context, goal *InvestmentGoal) (bool, error)

	// Get retrieves the goal for a (year, quarter)
	// Returns an error wrapping ErrNotFound if none has been set
	Get(ctx context.Context, year, quarter int) (*InvestmentGoal, error)

	// ListByYear retrieves all goals for a year ordered by quarter
	ListByYear(ctx context.Context, year int) ([]*InvestmentGoal, error)
}
