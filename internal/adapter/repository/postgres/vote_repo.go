package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/dealflow-backend/internal/domain"
)

// voteRepository implements domain.VoteRepository using PostgreSQL
type voteRepository struct {
	db *DB
}

// NewVoteRepository creates a new PostgreSQL vote repository
func NewVoteRepository(db *DB) domain.VoteRepository {
	return &voteRepository{db: db}
}

const voteColumns = `id, deal_id, lp_id, conviction_level, strong_no,
	has_pain_point, COALESCE(pain_point_level, ''),
	pilot_customer_interest, COALESCE(pilot_customer_response, ''),
	would_buy, COALESCE(buying_interest_response, ''),
	comments, solution_feedback, pilot_customer_feedback,
	buying_interest_feedback, price_feedback, additional_notes,
	created_at, updated_at`

const (
	// One vote per partner per deal: a resubmission keeps the original id and created_at
	upsertVoteQuery = `
		INSERT INTO votes (
			id, deal_id, lp_id, conviction_level, strong_no,
			has_pain_point, pain_point_level,
			pilot_customer_interest, pilot_customer_response,
			would_buy, buying_interest_response,
			comments, solution_feedback, pilot_customer_feedback,
			buying_interest_feedback, price_feedback, additional_notes,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10, NULLIF($11, ''),
			$12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (deal_id, lp_id) DO UPDATE SET
			conviction_level = EXCLUDED.conviction_level,
			strong_no = EXCLUDED.strong_no,
			has_pain_point = EXCLUDED.has_pain_point,
			pain_point_level = EXCLUDED.pain_point_level,
			pilot_customer_interest = EXCLUDED.pilot_customer_interest,
			pilot_customer_response = EXCLUDED.pilot_customer_response,
			would_buy = EXCLUDED.would_buy,
			buying_interest_response = EXCLUDED.buying_interest_response,
			comments = EXCLUDED.comments,
			solution_feedback = EXCLUDED.solution_feedback,
			pilot_customer_feedback = EXCLUDED.pilot_customer_feedback,
			buying_interest_feedback = EXCLUDED.buying_interest_feedback,
			price_feedback = EXCLUDED.price_feedback,
			additional_notes = EXCLUDED.additional_notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	getVoteQuery = `SELECT ` + voteColumns + ` FROM votes WHERE id = $1`

	listVotesByDealQuery = `SELECT ` + voteColumns + ` FROM votes WHERE deal_id = $1 ORDER BY created_at, id`

	deleteVoteQuery = `DELETE FROM votes WHERE id = $1`
)

// Upsert creates a vote, or replaces the partner's existing vote for the same deal
// On replacement vote.ID and vote.CreatedAt are set to the stored row's values.
func (r *voteRepository) Upsert(ctx context.Context, vote *domain.Vote) error {
	if err := vote.Validate(); err != nil {
		return err
	}

	var level sql.NullInt64
	if vote.ConvictionLevel != nil {
		level = sql.NullInt64{Int64: int64(*vote.ConvictionLevel), Valid: true}
	}

	err := r.db.QueryRowContext(ctx, upsertVoteQuery,
		vote.ID,
		vote.DealID,
		vote.LPID,
		level,
		vote.StrongNo,
		vote.HasPainPoint,
		string(vote.PainPointLevel),
		vote.PilotCustomerInterest,
		string(vote.PilotCustomerResponse),
		vote.WouldBuy,
		string(vote.BuyingInterestResponse),
		vote.Comments,
		vote.SolutionFeedback,
		vote.PilotCustomerFeedback,
		vote.BuyingInterestFeedback,
		vote.PriceFeedback,
		vote.AdditionalNotes,
		vote.CreatedAt,
		vote.UpdatedAt,
	).Scan(&vote.ID, &vote.CreatedAt)
	if err != nil {
		return mapWriteError(err, "upsert vote")
	}

	return nil
}

// GetByID retrieves a vote by its ID
func (r *voteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vote, error) {
	vote, err := scanVote(r.db.QueryRowContext(ctx, getVoteQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vote %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return vote, nil
}

// ListByDeal retrieves every vote cast for a deal
func (r *voteRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]*domain.Vote, error) {
	rows, err := r.db.QueryContext(ctx, listVotesByDealQuery, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	votes := make([]*domain.Vote, 0)
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, vote)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}

	return votes, nil
}

// Delete removes a vote
func (r *voteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, deleteVoteQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("vote %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func scanVote(row rowScanner) (*domain.Vote, error) {
	var vote domain.Vote
	var level sql.NullInt64
	var pain, pilot, buying string

	err := row.Scan(
		&vote.ID,
		&vote.DealID,
		&vote.LPID,
		&level,
		&vote.StrongNo,
		&vote.HasPainPoint,
		&pain,
		&vote.PilotCustomerInterest,
		&pilot,
		&vote.WouldBuy,
		&buying,
		&vote.Comments,
		&vote.SolutionFeedback,
		&vote.PilotCustomerFeedback,
		&vote.BuyingInterestFeedback,
		&vote.PriceFeedback,
		&vote.AdditionalNotes,
		&vote.CreatedAt,
		&vote.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if level.Valid {
		l := int(level.Int64)
		vote.ConvictionLevel = &l
	}
	vote.PainPointLevel = domain.PainPointLevel(pain)
	vote.PilotCustomerResponse = domain.PilotResponse(pilot)
	vote.BuyingInterestResponse = domain.BuyingInterest(buying)

	return &vote, nil
}
