package pacing

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/dealflow-backend/internal/domain"
)

// DaysPerDeal is a ratio that may be undefined. Infinite renders as "∞".
type DaysPerDeal struct {
	Days     float64
	Infinite bool
}

// InfiniteDaysPerDeal is the sentinel used when no deal has been closed yet
var InfiniteDaysPerDeal = DaysPerDeal{Infinite: true}

func (d DaysPerDeal) String() string {
	if d.Infinite {
		return "∞"
	}
	return strconv.FormatFloat(d.Days, 'f', 1, 64)
}

// Progress describes how far through a quarter "now" is
type Progress struct {
	ElapsedDays     int
	TotalDays       int
	RemainingDays   int
	ProgressPercent float64 // Clamped to [0, 100]
}

// Report is the pacing outcome for one quarter
type Report struct {
	Quarter  domain.Quarter
	Progress Progress

	TargetDeals   int
	DealsInvested int
	ExpectedByNow int
	OnTrack       bool
	BehindBy      int

	Velocity     DaysPerDeal // Elapsed days per closed deal
	RequiredPace DaysPerDeal // Remaining days per deal still needed; 0 once the target is met

	TargetInvestment          decimal.Decimal
	TotalInvested             decimal.Decimal
	InvestmentProgressPercent float64 // 0 when there is no investment target
}

// ActivityCounts are the monthly-report pipeline numbers
type ActivityCounts struct {
	TalkedTo       int
	SentToPartners int
	Invested       int
}

// Actuals derives what was actually invested during a quarter
// A deal counts if its stage is signed or signed_and_wired and its close date falls in the quarter.
func Actuals(deals []domain.Deal, q domain.Quarter, loc *time.Location) domain.QuarterlyActual {
	actual := domain.QuarterlyActual{Quarter: q, TotalInvested: decimal.Zero}
	companies := make(map[string]struct{})

	for i := range deals {
		d := &deals[i]
		if !d.Stage.IsInvested() || d.CloseDate == nil || !q.Contains(*d.CloseDate, loc) {
			continue
		}

		actual.DealsInvested++
		if d.DealSize != nil {
			actual.TotalInvested = actual.TotalInvested.Add(*d.DealSize)
		}
		companies[strings.ToLower(strings.TrimSpace(d.CompanyName))] = struct{}{}
	}

	actual.PortfolioCompanies = len(companies)
	return actual
}

// TimeProgress computes elapsed and remaining days of q at now, both ends inclusive
// Before the quarter starts nothing has elapsed; after it ends everything has.
func TimeProgress(q domain.Quarter, now time.Time) Progress {
	loc := now.Location()
	start, end := q.Bounds(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	total := daysBetween(start, end) + 1
	elapsed := daysBetween(start, today) + 1
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}

	return Progress{
		ElapsedDays:     elapsed,
		TotalDays:       total,
		RemainingDays:   total - elapsed,
		ProgressPercent: clamp(float64(elapsed)/float64(total)*100, 0, 100),
	}
}

// Pace compares a quarter's actuals to its goal at now
func Pace(goal domain.InvestmentGoal, actual domain.QuarterlyActual, now time.Time) Report {
	q := goal.Period()
	progress := TimeProgress(q, now)

	report := Report{
		Quarter:          q,
		Progress:         progress,
		TargetDeals:      goal.TargetDeals,
		DealsInvested:    actual.DealsInvested,
		TargetInvestment: goal.TargetInvestment,
		TotalInvested:    actual.TotalInvested,
	}

	report.ExpectedByNow = ExpectedByNow(goal.TargetDeals, progress.ProgressPercent)
	report.OnTrack = actual.DealsInvested >= report.ExpectedByNow
	if !report.OnTrack {
		report.BehindBy = report.ExpectedByNow - actual.DealsInvested
	}

	report.Velocity = Velocity(progress.ElapsedDays, actual.DealsInvested)
	report.RequiredPace = RequiredPace(progress.RemainingDays, goal.TargetDeals, actual.DealsInvested)

	if goal.TargetInvestment.IsPositive() {
		pct, _ := actual.TotalInvested.Div(goal.TargetInvestment).Mul(decimal.NewFromInt(100)).Float64()
		report.InvestmentProgressPercent = pct
	}

	return report
}

// ExpectedByNow is floor(targetDeals * progressPercent / 100)
func ExpectedByNow(targetDeals int, progressPercent float64) int {
	return int(math.Floor(float64(targetDeals) * progressPercent / 100))
}

// Velocity is elapsed days per invested deal, infinite while nothing has closed
func Velocity(elapsedDays, dealsInvested int) DaysPerDeal {
	if dealsInvested <= 0 {
		return InfiniteDaysPerDeal
	}
	return DaysPerDeal{Days: float64(elapsedDays) / float64(dealsInvested)}
}

// RequiredPace is remaining days per deal still needed to hit the target
// Returns 0 when the target is already met.
func RequiredPace(remainingDays, targetDeals, dealsInvested int) DaysPerDeal {
	remainingTarget := targetDeals - dealsInvested
	if remainingTarget <= 0 {
		return DaysPerDeal{}
	}
	return DaysPerDeal{Days: float64(remainingDays) / float64(remainingTarget)}
}

// TalkedTo counts deals whose first meeting was booked in [from, to)
// Legacy records without a stamp fall back to: current stage at or beyond
// sourcing_meeting_booked and UpdatedAt within the period. The fallback is kept
// so historical reports do not change.
func TalkedTo(deals []domain.Deal, from, to time.Time) int {
	return countEntered(deals, from, to, domain.StageSourcingMeetingBooked, func(d *domain.Deal) *time.Time {
		return d.SourcingMeetingBookedAt
	})
}

// SentToPartners counts deals that entered partner_review in [from, to)
// Same stamp-first, UpdatedAt-fallback policy as TalkedTo.
func SentToPartners(deals []domain.Deal, from, to time.Time) int {
	return countEntered(deals, from, to, domain.StagePartnerReview, func(d *domain.Deal) *time.Time {
		return d.PartnerReviewStartedAt
	})
}

// InvestedBetween counts invested deals whose close date falls in [from, to)
func InvestedBetween(deals []domain.Deal, from, to time.Time) int {
	count := 0
	for i := range deals {
		d := &deals[i]
		if d.Stage.IsInvested() && d.CloseDate != nil && within(*d.CloseDate, from, to) {
			count++
		}
	}
	return count
}

// MonthlyActivity returns the pipeline numbers for one calendar month in loc
func MonthlyActivity(deals []domain.Deal, year int, month time.Month, loc *time.Location) ActivityCounts {
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, 0)

	return ActivityCounts{
		TalkedTo:       TalkedTo(deals, from, to),
		SentToPartners: SentToPartners(deals, from, to),
		Invested:       InvestedBetween(deals, from, to),
	}
}

func countEntered(deals []domain.Deal, from, to time.Time, stage domain.Stage, stamp func(*domain.Deal) *time.Time) int {
	count := 0
	for i := range deals {
		d := &deals[i]
		if at := stamp(d); at != nil {
			if within(*at, from, to) {
				count++
			}
			continue
		}
		if d.Stage.AtLeast(stage) && within(d.UpdatedAt, from, to) {
			count++
		}
	}
	return count
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func daysBetween(a, b time.Time) int {
	// Round to absorb DST shifts between two local midnights
	return int(math.Round(b.Sub(a).Hours() / 24))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
