package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/dealflow-backend/internal/domain"
	"github.com/simaogato/dealflow-backend/internal/usecase/aggregator"
	"github.com/simaogato/dealflow-backend/internal/usecase/matcher"
	"github.com/simaogato/dealflow-backend/internal/usecase/pacing"
)

// DealReport is everything the deal page needs
type DealReport struct {
	Deal                    domain.Deal
	Summary                 aggregator.Summary
	NextMeeting             *matcher.Advisory
	ConfirmedPercent        *decimal.Decimal // nil when raising or confirmed is unknown
	OversubscriptionPercent *decimal.Decimal
	Highlights              []domain.Vote
}

// PortfolioEntry is one row of the ranked pipeline view
type PortfolioEntry struct {
	Deal    domain.Deal
	Summary aggregator.Summary
}

// QuarterSummary is the goal tracking view for one quarter
type QuarterSummary struct {
	Quarter domain.Quarter
	Goal    domain.InvestmentGoal
	HasGoal bool
	Actual  domain.QuarterlyActual
	Pacing  pacing.Report
}

// ReportService assembles per-deal and portfolio views from stored records
type ReportService struct {
	DealRepo domain.DealRepository
	VoteRepo domain.VoteRepository
	GoalRepo domain.GoalRepository

	Location *time.Location
}

// NewReportService creates a new ReportService instance
// Quarter and month boundaries are evaluated in loc.
func NewReportService(
	dealRepo domain.DealRepository,
	voteRepo domain.VoteRepository,
	goalRepo domain.GoalRepository,
	loc *time.Location,
) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		DealRepo: dealRepo,
		VoteRepo: voteRepo,
		GoalRepo: goalRepo,
		Location: loc,
	}
}

// DealReport builds the deal view, including the next-meeting advisory from events
func (s *ReportService) DealReport(ctx context.Context, dealID uuid.UUID, events []domain.CalendarEvent, now time.Time) (*DealReport, error) {
	deal, err := s.DealRepo.GetByID(ctx, dealID)
	if err != nil {
		return nil, err
	}

	votes, err := s.listVotes(ctx, dealID)
	if err != nil {
		return nil, err
	}

	report := &DealReport{
		Deal:       *deal,
		Summary:    aggregator.Aggregate(dealID, votes),
		Highlights: aggregator.OfferHighlights(votes),
	}

	if advisory, ok := matcher.NextMeeting(*deal, events, now.In(s.Location)); ok {
		report.NextMeeting = advisory
	}

	if pct, ok := deal.ConfirmedPercent(); ok {
		report.ConfirmedPercent = &pct
	}
	if pct, ok := deal.OversubscriptionPercent(); ok {
		report.OversubscriptionPercent = &pct
	}

	return report, nil
}

// Portfolio ranks active deals by net score, then vote count, then company name
func (s *ReportService) Portfolio(ctx context.Context) ([]PortfolioEntry, error) {
	deals, err := s.DealRepo.List(ctx, domain.DealStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	entries := make([]PortfolioEntry, 0, len(deals))
	for _, deal := range deals {
		if !deal.IsActive() {
			continue
		}

		votes, err := s.listVotes(ctx, deal.ID)
		if err != nil {
			return nil, err
		}

		entries = append(entries, PortfolioEntry{
			Deal:    *deal,
			Summary: aggregator.Aggregate(deal.ID, votes),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Summary, entries[j].Summary
		if a.NetScore != b.NetScore {
			return a.NetScore > b.NetScore
		}
		if a.TotalVotes != b.TotalVotes {
			return a.TotalVotes > b.TotalVotes
		}
		return strings.ToLower(entries[i].Deal.CompanyName) < strings.ToLower(entries[j].Deal.CompanyName)
	})

	return entries, nil
}

// QuarterPacing tracks one quarter against its goal
// A quarter without a goal is reported against a zero goal rather than failing.
func (s *ReportService) QuarterPacing(ctx context.Context, q domain.Quarter, now time.Time) (*QuarterSummary, error) {
	deals, err := s.allDeals(ctx)
	if err != nil {
		return nil, err
	}

	goal, hasGoal, err := s.goalFor(ctx, q)
	if err != nil {
		return nil, err
	}

	return s.quarterSummary(deals, q, goal, hasGoal, now), nil
}

// YearPacing tracks all four quarters of a year
func (s *ReportService) YearPacing(ctx context.Context, year int, now time.Time) ([]QuarterSummary, error) {
	deals, err := s.allDeals(ctx)
	if err != nil {
		return nil, err
	}

	goals, err := s.GoalRepo.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	byQuarter := make(map[int]*domain.InvestmentGoal, len(goals))
	for _, g := range goals {
		byQuarter[g.Quarter] = g
	}

	summaries := make([]QuarterSummary, 0, 4)
	for q := 1; q <= 4; q++ {
		period := domain.Quarter{Year: year, Q: q}
		goal := domain.InvestmentGoal{Year: year, Quarter: q, TargetInvestment: decimal.Zero}
		g, hasGoal := byQuarter[q]
		if hasGoal {
			goal = *g
		}
		summaries = append(summaries, *s.quarterSummary(deals, period, goal, hasGoal, now))
	}

	return summaries, nil
}

// MonthlyActivity returns the talked-to, sent-to-partners and invested counts for a month
func (s *ReportService) MonthlyActivity(ctx context.Context, year int, month time.Month) (pacing.ActivityCounts, error) {
	deals, err := s.allDeals(ctx)
	if err != nil {
		return pacing.ActivityCounts{}, err
	}
	return pacing.MonthlyActivity(deals, year, month, s.Location), nil
}

func (s *ReportService) quarterSummary(deals []domain.Deal, q domain.Quarter, goal domain.InvestmentGoal, hasGoal bool, now time.Time) *QuarterSummary {
	actual := pacing.Actuals(deals, q, s.Location)
	return &QuarterSummary{
		Quarter: q,
		Goal:    goal,
		HasGoal: hasGoal,
		Actual:  actual,
		Pacing:  pacing.Pace(goal, actual, now.In(s.Location)),
	}
}

func (s *ReportService) goalFor(ctx context.Context, q domain.Quarter) (domain.InvestmentGoal, bool, error) {
	goal, err := s.GoalRepo.Get(ctx, q.Year, q.Q)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.InvestmentGoal{Year: q.Year, Quarter: q.Q, TargetInvestment: decimal.Zero}, false, nil
		}
		return domain.InvestmentGoal{}, false, fmt.Errorf("failed to get goal: %w", err)
	}
	return *goal, true, nil
}

// allDeals includes archived deals: they closed, so they still count towards actuals
func (s *ReportService) allDeals(ctx context.Context) ([]domain.Deal, error) {
	deals, err := s.DealRepo.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	values := make([]domain.Deal, 0, len(deals))
	for _, d := range deals {
		values = append(values, *d)
	}
	return values, nil
}

func (s *ReportService) listVotes(ctx context.Context, dealID uuid.UUID) ([]domain.Vote, error) {
	votes, err := s.VoteRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	values := make([]domain.Vote, 0, len(votes))
	for _, v := range votes {
		values = append(values, *v)
	}
	return values, nil
}
