package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conviction levels. StrongNo is not stored as a level; it is the veto flag on Vote.
const (
	ConvictionStrongNo      = 0
	ConvictionNo            = 1
	ConvictionFollowingPack = 2
	ConvictionStrongYes     = 3
	ConvictionStrongYesPlus = 4
)

// PainPointLevel is the 7-point answer to "how painful is this problem for you"
type PainPointLevel string

const (
	PainNotAtAll    PainPointLevel = "not_at_all"
	PainSlight      PainPointLevel = "slight"
	PainMinor       PainPointLevel = "minor"
	PainModerate    PainPointLevel = "moderate"
	PainRealProblem PainPointLevel = "real_problem"
	PainMajorPain   PainPointLevel = "major_pain"
	PainCritical    PainPointLevel = "critical"
)

// PilotResponse is the 7-point answer to "would you pilot this"
type PilotResponse string

const (
	PilotNotInterested            PilotResponse = "not_interested"
	PilotUnlikely                 PilotResponse = "unlikely"
	PilotNeedMoreInfo             PilotResponse = "need_more_info"
	PilotCautiouslyInterested     PilotResponse = "cautiously_interested"
	PilotInterestedWithConditions PilotResponse = "interested_with_conditions"
	PilotVeryInterested           PilotResponse = "very_interested"
	PilotHellYes                  PilotResponse = "hell_yes"
)

// BuyingInterest is the 7-point answer to "would you buy this"
type BuyingInterest string

const (
	BuyDefinitelyNot BuyingInterest = "definitely_not"
	BuyProbablyNot   BuyingInterest = "probably_not"
	BuyUnsure        BuyingInterest = "unsure"
	BuyMaybe         BuyingInterest = "maybe"
	BuyProbably      BuyingInterest = "probably"
	BuyVeryLikely    BuyingInterest = "very_likely"
	BuyAbsolutely    BuyingInterest = "absolutely"
)

// Rank tables, weakest answer first
var (
	painPointOrder = []PainPointLevel{
		PainNotAtAll, PainSlight, PainMinor, PainModerate, PainRealProblem, PainMajorPain, PainCritical,
	}
	pilotResponseOrder = []PilotResponse{
		PilotNotInterested, PilotUnlikely, PilotNeedMoreInfo, PilotCautiouslyInterested,
		PilotInterestedWithConditions, PilotVeryInterested, PilotHellYes,
	}
	buyingInterestOrder = []BuyingInterest{
		BuyDefinitelyNot, BuyProbablyNot, BuyUnsure, BuyMaybe, BuyProbably, BuyVeryLikely, BuyAbsolutely,
	}
)

// Strong-signal thresholds. Fixed editorial policy, shared with the offer-email highlighter.
const (
	strongPainThreshold  = PainRealProblem
	strongPilotThreshold = PilotCautiouslyInterested
	strongBuyThreshold   = BuyProbably
)

func rankOf[T comparable](order []T, v T) int {
	for i, o := range order {
		if o == v {
			return i
		}
	}
	return -1
}

// Rank returns the ordinal position of l (0 = weakest), or -1 if unanswered or unknown
func (l PainPointLevel) Rank() int { return rankOf(painPointOrder, l) }

// Rank returns the ordinal position of r (0 = weakest), or -1 if unanswered or unknown
func (r PilotResponse) Rank() int { return rankOf(pilotResponseOrder, r) }

// Rank returns the ordinal position of b (0 = weakest), or -1 if unanswered or unknown
func (b BuyingInterest) Rank() int { return rankOf(buyingInterestOrder, b) }

// IsStrongSignal reports whether l is real_problem or worse
func (l PainPointLevel) IsStrongSignal() bool {
	return l.Rank() >= strongPainThreshold.Rank()
}

// IsStrongSignal reports whether r is cautiously_interested or better
func (r PilotResponse) IsStrongSignal() bool {
	return r.Rank() >= strongPilotThreshold.Rank()
}

// IsStrongSignal reports whether b is probably or better
func (b BuyingInterest) IsStrongSignal() bool {
	return b.Rank() >= strongBuyThreshold.Rank()
}

// Vote is one partner's survey response for one deal
type Vote struct {
	ID     uuid.UUID
	DealID uuid.UUID
	LPID   uuid.UUID

	ConvictionLevel *int // 1-4, nil when the partner left it blank
	StrongNo        bool // Veto. Overrides ConvictionLevel when set.

	HasPainPoint           bool
	PainPointLevel         PainPointLevel
	PilotCustomerInterest  bool
	PilotCustomerResponse  PilotResponse
	WouldBuy               bool
	BuyingInterestResponse BuyingInterest

	Comments               string
	SolutionFeedback       string
	PilotCustomerFeedback  string
	BuyingInterestFeedback string
	PriceFeedback          string
	AdditionalNotes        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate ensures the vote adheres to domain rules
func (v *Vote) Validate() error {
	if v.DealID == uuid.Nil {
		return validationError("vote must reference a deal")
	}
	if v.LPID == uuid.Nil {
		return validationError("vote must reference a partner")
	}

	if v.ConvictionLevel != nil {
		if *v.ConvictionLevel < ConvictionNo || *v.ConvictionLevel > ConvictionStrongYesPlus {
			return validationError("conviction level must be between 1 and 4")
		}
	}

	if v.PainPointLevel != "" && v.PainPointLevel.Rank() < 0 {
		return validationError("unknown pain point level " + string(v.PainPointLevel))
	}
	if v.PilotCustomerResponse != "" && v.PilotCustomerResponse.Rank() < 0 {
		return validationError("unknown pilot customer response " + string(v.PilotCustomerResponse))
	}
	if v.BuyingInterestResponse != "" && v.BuyingInterestResponse.Rank() < 0 {
		return validationError("unknown buying interest response " + string(v.BuyingInterestResponse))
	}

	return nil
}

// EffectiveLevel returns the level used in aggregation
// StrongNo always wins (0). A missing rating counts as 1 ("No").
func (v *Vote) EffectiveLevel() int {
	if v.StrongNo {
		return ConvictionStrongNo
	}
	if v.ConvictionLevel == nil {
		return ConvictionNo
	}
	return *v.ConvictionLevel
}

// HasFeedback reports whether any free-text field was filled in
func (v *Vote) HasFeedback() bool {
	for _, s := range []string{
		v.Comments, v.SolutionFeedback, v.PilotCustomerFeedback,
		v.BuyingInterestFeedback, v.PriceFeedback, v.AdditionalNotes,
	} {
		if s != "" {
			return true
		}
	}
	return false
}

// ConvictionLabel returns the display label for an effective level
func ConvictionLabel(level int) string {
	switch level {
	case ConvictionStrongNo:
		return "Strong No"
	case ConvictionNo:
		return "No"
	case ConvictionFollowingPack:
		return "Following Pack"
	case ConvictionStrongYes:
		return "Strong Yes"
	case ConvictionStrongYesPlus:
		return "Strong Yes +"
	default:
		return "Unknown"
	}
}
