package domain

import (
	"time"
)

// Stage represents a deal's position in the pipeline
type Stage string

const (
	StageSourcing                    Stage = "sourcing"
	StageSourcingReachedOut          Stage = "sourcing_reached_out"
	StageSourcingMeetingBooked       Stage = "sourcing_meeting_booked"
	StageSourcingMeetingDoneDeciding Stage = "sourcing_meeting_done_deciding"
	StagePartnerReview               Stage = "partner_review"
	StageOffer                       Stage = "offer"
	StageSigned                      Stage = "signed"
	StageSignedAndWired              Stage = "signed_and_wired"
	StageClosedLostPassed            Stage = "closed_lost_passed"
	StageClosedLostRejected          Stage = "closed_lost_rejected"
)

// forwardOrder is the canonical pipeline order. Closed-lost states are not part of it.
var forwardOrder = []Stage{
	StageSourcing,
	StageSourcingReachedOut,
	StageSourcingMeetingBooked,
	StageSourcingMeetingDoneDeciding,
	StagePartnerReview,
	StageOffer,
	StageSigned,
	StageSignedAndWired,
}

var closedLostStages = []Stage{
	StageClosedLostPassed,
	StageClosedLostRejected,
}

var stageLabels = map[Stage]string{
	StageSourcing:                    "Sourcing",
	StageSourcingReachedOut:          "Reached Out",
	StageSourcingMeetingBooked:       "Meeting Booked",
	StageSourcingMeetingDoneDeciding: "Meeting Done - Deciding",
	StagePartnerReview:               "Partner Review",
	StageOffer:                       "Offer",
	StageSigned:                      "Signed",
	StageSignedAndWired:              "Signed & Wired",
	StageClosedLostPassed:            "Closed Lost - Passed",
	StageClosedLostRejected:          "Closed Lost - Rejected",
}

var stageRank = func() map[Stage]int {
	ranks := make(map[Stage]int, len(forwardOrder))
	for i, s := range forwardOrder {
		ranks[s] = i
	}
	return ranks
}()

// AllStages returns every stage, forward order first, then the closed-lost states
func AllStages() []Stage {
	stages := make([]Stage, 0, len(forwardOrder)+len(closedLostStages))
	stages = append(stages, forwardOrder...)
	return append(stages, closedLostStages...)
}

// ParseStage converts a raw string into a Stage
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.IsValid() {
		return "", validationError("unknown stage " + raw)
	}
	return s, nil
}

// IsValid reports whether s is a member of the stage enum
func (s Stage) IsValid() bool {
	_, ok := stageLabels[s]
	return ok
}

// IsClosedLost reports whether s is one of the two absorbing off-ramps
func (s Stage) IsClosedLost() bool {
	return s == StageClosedLostPassed || s == StageClosedLostRejected
}

// IsTerminal reports whether no transition of any kind may leave s
func (s Stage) IsTerminal() bool {
	return s.IsClosedLost()
}

// IsInvested reports whether s counts towards quarterly investment actuals
func (s Stage) IsInvested() bool {
	return s == StageSigned || s == StageSignedAndWired
}

// Rank returns the position of s in the forward order, or -1 for closed-lost and unknown stages
func (s Stage) Rank() int {
	if r, ok := stageRank[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is at or beyond other in the forward order
func (s Stage) AtLeast(other Stage) bool {
	r := s.Rank()
	return r >= 0 && r >= other.Rank()
}

// Label returns the display label for s
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

func (s Stage) String() string {
	return string(s)
}

// NextStage returns the forward successor of s
// Returns false for signed_and_wired and both closed-lost states
func NextStage(s Stage) (Stage, bool) {
	r := s.Rank()
	if r < 0 || r == len(forwardOrder)-1 {
		return "", false
	}
	return forwardOrder[r+1], true
}

// PreviousStage is the exact inverse of NextStage
// Returns false for sourcing and both closed-lost states
func PreviousStage(s Stage) (Stage, bool) {
	r := s.Rank()
	if r <= 0 {
		return "", false
	}
	return forwardOrder[r-1], true
}

// LegalTargets lists every stage a deal currently at s may move to
func LegalTargets(s Stage) []Stage {
	if !s.IsValid() || s.IsTerminal() {
		return nil
	}

	targets := make([]Stage, 0, 4)
	if prev, ok := PreviousStage(s); ok {
		targets = append(targets, prev)
	}
	if next, ok := NextStage(s); ok {
		targets = append(targets, next)
	}
	return append(targets, closedLostStages...)
}

// CanTransition reports whether moving from one stage to another is a legal single step
// or a closed-lost shortcut
func CanTransition(from, to Stage) bool {
	if !from.IsValid() || !to.IsValid() || from.IsTerminal() {
		return false
	}
	if to.IsClosedLost() {
		return true
	}
	if next, ok := NextStage(from); ok && next == to {
		return true
	}
	if prev, ok := PreviousStage(from); ok && prev == to {
		return true
	}
	return false
}

// ApplyTransition moves a deal to target and returns the updated copy
// The input deal is never mutated. On first entry into sourcing_meeting_booked,
// partner_review, signed or signed_and_wired the matching stamp is set to now;
// a stamp that is already set is left untouched.
func ApplyTransition(deal Deal, target Stage, now time.Time) (Deal, error) {
	if !CanTransition(deal.Stage, target) {
		return deal, &InvalidTransitionError{From: deal.Stage, To: target, Legal: LegalTargets(deal.Stage)}
	}

	next := deal.Clone()
	next.Stage = target
	next.UpdatedAt = now

	switch target {
	case StageSourcingMeetingBooked:
		next.SourcingMeetingBookedAt = stampOnce(next.SourcingMeetingBookedAt, now)
	case StagePartnerReview:
		next.PartnerReviewStartedAt = stampOnce(next.PartnerReviewStartedAt, now)
	case StageSigned, StageSignedAndWired:
		next.CloseDate = stampOnce(next.CloseDate, now)
	}

	return next, nil
}

func stampOnce(current *time.Time, now time.Time) *time.Time {
	if current != nil {
		return current
	}
	t := now
	return &t
}
