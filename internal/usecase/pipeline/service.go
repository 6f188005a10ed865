package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/dealflow-backend/internal/domain"
	"github.com/simaogato/dealflow-backend/internal/usecase/aggregator"
)

// PipelineService handles stage transitions and survey vote writes
type PipelineService struct {
	DealRepo domain.DealRepository
	VoteRepo domain.VoteRepository

	log zerolog.Logger
	now func() time.Time
}

// NewPipelineService creates a new PipelineService instance
func NewPipelineService(dealRepo domain.DealRepository, voteRepo domain.VoteRepository, log zerolog.Logger) *PipelineService {
	return &PipelineService{
		DealRepo: dealRepo,
		VoteRepo: voteRepo,
		log:      log.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *PipelineService) WithClock(now func() time.Time) *PipelineService {
	s.now = now
	return s
}

// CreateDealInput holds the fields a new deal starts with
type CreateDealInput struct {
	CompanyName string
	Founders    []domain.Founder

	DealSize        *decimal.Decimal
	Valuation       *decimal.Decimal
	RaisingAmount   *decimal.Decimal
	ConfirmedAmount *decimal.Decimal
	RevenueAmount   *decimal.Decimal
}

// CreateDeal stores a new deal in the initial sourcing stage
func (s *PipelineService) CreateDeal(ctx context.Context, input CreateDealInput) (*domain.Deal, error) {
	deal := domain.NewDeal(input.CompanyName, input.Founders, s.now())
	deal.DealSize = input.DealSize
	deal.Valuation = input.Valuation
	deal.RaisingAmount = input.RaisingAmount
	deal.ConfirmedAmount = input.ConfirmedAmount
	deal.RevenueAmount = input.RevenueAmount

	if err := deal.Validate(); err != nil {
		return nil, err
	}

	if err := s.DealRepo.Create(ctx, &deal); err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	s.log.Info().Str("deal_id", deal.ID.String()).Str("company", deal.CompanyName).Msg("Deal created")

	return &deal, nil
}

// TransitionStage moves a deal to target
// The store locks the deal, the transition is validated against the locked state and
// written in the same transaction, so stage-entry stamps are set at most once even under
// concurrent writers. Returns *domain.InvalidTransitionError for illegal moves.
func (s *PipelineService) TransitionStage(ctx context.Context, dealID uuid.UUID, target domain.Stage) (*domain.Deal, error) {
	var from domain.Stage
	now := s.now()

	updated, err := s.DealRepo.Transition(ctx, dealID, func(current domain.Deal) (domain.Deal, error) {
		from = current.Stage
		return domain.ApplyTransition(current, target, now)
	})
	if err != nil {
		s.log.Debug().Err(err).Str("deal_id", dealID.String()).Str("target", string(target)).Msg("Stage transition rejected")
		return nil, err
	}

	s.log.Info().
		Str("deal_id", dealID.String()).
		Str("from", string(from)).
		Str("to", string(updated.Stage)).
		Msg("Deal stage changed")

	return updated, nil
}

// SetStatus archives or restores a deal
// Archived deals drop out of the portfolio view but still count towards pacing actuals.
func (s *PipelineService) SetStatus(ctx context.Context, dealID uuid.UUID, status domain.DealStatus) (*domain.Deal, error) {
	now := s.now()

	updated, err := s.DealRepo.Update(ctx, dealID, func(current domain.Deal) (domain.Deal, error) {
		return domain.ApplyStatus(current, status, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("deal_id", dealID.String()).
		Str("status", string(updated.Status)).
		Msg("Deal status changed")

	return updated, nil
}

// ArchiveDeal hides a deal from pipeline views
func (s *PipelineService) ArchiveDeal(ctx context.Context, dealID uuid.UUID) (*domain.Deal, error) {
	return s.SetStatus(ctx, dealID, domain.DealStatusArchived)
}

// UpdateFinancials edits a deal's money fields under the row lock
func (s *PipelineService) UpdateFinancials(ctx context.Context, dealID uuid.UUID, update domain.FinancialsUpdate) (*domain.Deal, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: no financial fields to update", domain.ErrValidation)
	}

	now := s.now()
	updated, err := s.DealRepo.Update(ctx, dealID, func(current domain.Deal) (domain.Deal, error) {
		return domain.ApplyFinancials(current, update, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("deal_id", dealID.String()).Msg("Deal financials updated")

	return updated, nil
}

// SubmitVote records a partner's survey response and returns the recomputed summary
// A partner re-submitting for the same deal replaces their earlier vote.
func (s *PipelineService) SubmitVote(ctx context.Context, vote domain.Vote) (*domain.Vote, aggregator.Summary, error) {
	if err := vote.Validate(); err != nil {
		return nil, aggregator.Summary{}, err
	}

	// Verify deal exists
	if _, err := s.DealRepo.GetByID(ctx, vote.DealID); err != nil {
		return nil, aggregator.Summary{}, err
	}

	now := s.now()
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = now
	}
	vote.UpdatedAt = now

	if err := s.VoteRepo.Upsert(ctx, &vote); err != nil {
		return nil, aggregator.Summary{}, fmt.Errorf("failed to save vote: %w", err)
	}

	summary, err := s.DealSummary(ctx, vote.DealID)
	if err != nil {
		return nil, aggregator.Summary{}, err
	}

	s.log.Info().
		Str("deal_id", vote.DealID.String()).
		Str("lp_id", vote.LPID.String()).
		Int("net_score", summary.NetScore).
		Int("total_votes", summary.TotalVotes).
		Msg("Vote submitted")

	return &vote, summary, nil
}

// DeleteVote removes a vote and returns the deal's recomputed summary
func (s *PipelineService) DeleteVote(ctx context.Context, voteID uuid.UUID) (aggregator.Summary, error) {
	vote, err := s.VoteRepo.GetByID(ctx, voteID)
	if err != nil {
		return aggregator.Summary{}, err
	}

	if err := s.VoteRepo.Delete(ctx, voteID); err != nil {
		return aggregator.Summary{}, fmt.Errorf("failed to delete vote: %w", err)
	}

	summary, err := s.DealSummary(ctx, vote.DealID)
	if err != nil {
		return aggregator.Summary{}, err
	}

	s.log.Info().
		Str("deal_id", vote.DealID.String()).
		Str("vote_id", voteID.String()).
		Int("net_score", summary.NetScore).
		Msg("Vote deleted")

	return summary, nil
}

// DealSummary recomputes a deal's vote summary from the live vote set
// Always re-reads after a write; the summary is never cached.
func (s *PipelineService) DealSummary(ctx context.Context, dealID uuid.UUID) (aggregator.Summary, error) {
	votes, err := s.VoteRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return aggregator.Summary{}, fmt.Errorf("failed to list votes: %w", err)
	}
	return aggregator.AggregatePointers(dealID, votes), nil
}
