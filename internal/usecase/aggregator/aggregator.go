package aggregator

import (
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/simaogato/dealflow-backend/internal/domain"
)

// Summary is the per-deal rollup of partner votes
// It is never stored. Recompute it from the live vote set on every read.
type Summary struct {
	DealID uuid.UUID

	TotalVotes         int
	StrongNoVotes      int
	NoVotes            int
	FollowingPackVotes int
	StrongYesVotes     int
	StrongYesPlusVotes int

	NetScore          int     // (StrongYes + StrongYesPlus) - StrongNo
	AverageConviction float64 // 0 when there are no votes

	PainPointPercentage     float64
	PilotInterestPercentage float64
	WouldBuyPercentage      float64

	StrongPainSignals  int
	StrongPilotSignals int
	StrongBuySignals   int

	FeedbackCount int
}

// Aggregate computes the conviction and customer-development summary for a deal
// Logic:
//  1. Effective level per vote: 0 for strong no, the conviction level otherwise (1 when blank)
//  2. Tally votes by effective level
//  3. NetScore ignores "No" and "Following Pack" votes
//  4. Percentages are taken over all votes and are 0 when there are none
//
// Every vote lands in exactly one tally bucket, so the tallies always sum to TotalVotes.
func Aggregate(dealID uuid.UUID, votes []domain.Vote) Summary {
	summary := Summary{DealID: dealID, TotalVotes: len(votes)}
	if len(votes) == 0 {
		return summary
	}

	levels := make([]float64, 0, len(votes))
	var painPoints, pilotInterest, wouldBuy int

	for i := range votes {
		v := &votes[i]

		effective := v.EffectiveLevel()
		switch effective {
		case domain.ConvictionStrongNo:
			summary.StrongNoVotes++
		case domain.ConvictionFollowingPack:
			summary.FollowingPackVotes++
		case domain.ConvictionStrongYes:
			summary.StrongYesVotes++
		case domain.ConvictionStrongYesPlus:
			summary.StrongYesPlusVotes++
		default:
			// Out-of-range levels only reach here from unvalidated input. Count them as "No"
			// so the tallies keep summing to TotalVotes.
			effective = domain.ConvictionNo
			summary.NoVotes++
		}
		levels = append(levels, float64(effective))

		if v.HasPainPoint {
			painPoints++
		}
		if v.PilotCustomerInterest {
			pilotInterest++
		}
		if v.WouldBuy {
			wouldBuy++
		}

		if v.PainPointLevel.IsStrongSignal() {
			summary.StrongPainSignals++
		}
		if v.PilotCustomerResponse.IsStrongSignal() {
			summary.StrongPilotSignals++
		}
		if v.BuyingInterestResponse.IsStrongSignal() {
			summary.StrongBuySignals++
		}
		if v.HasFeedback() {
			summary.FeedbackCount++
		}
	}

	summary.NetScore = summary.StrongYesVotes + summary.StrongYesPlusVotes - summary.StrongNoVotes
	summary.AverageConviction = stat.Mean(levels, nil)
	summary.PainPointPercentage = percentOf(painPoints, summary.TotalVotes)
	summary.PilotInterestPercentage = percentOf(pilotInterest, summary.TotalVotes)
	summary.WouldBuyPercentage = percentOf(wouldBuy, summary.TotalVotes)

	return summary
}

// AggregatePointers is Aggregate for the pointer slices repositories return
func AggregatePointers(dealID uuid.UUID, votes []*domain.Vote) Summary {
	values := make([]domain.Vote, 0, len(votes))
	for _, v := range votes {
		if v != nil {
			values = append(values, *v)
		}
	}
	return Aggregate(dealID, values)
}

// OfferHighlights returns the votes whose pain or buying signal meets the strong-signal
// threshold, oldest first. The offer email composer quotes these partners.
func OfferHighlights(votes []domain.Vote) []domain.Vote {
	highlights := make([]domain.Vote, 0)
	for _, v := range votes {
		if v.PainPointLevel.IsStrongSignal() || v.BuyingInterestResponse.IsStrongSignal() {
			highlights = append(highlights, v)
		}
	}

	sort.SliceStable(highlights, func(i, j int) bool {
		if !highlights[i].UpdatedAt.Equal(highlights[j].UpdatedAt) {
			return highlights[i].UpdatedAt.Before(highlights[j].UpdatedAt)
		}
		return highlights[i].LPID.String() < highlights[j].LPID.String()
	})

	return highlights
}

func percentOf(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
