package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DealStatus is orthogonal to Stage. Archived deals are hidden from pipeline views but keep their history.
type DealStatus string

const (
	DealStatusActive   DealStatus = "active"
	DealStatusArchived DealStatus = "archived"
)

// Founder is owned by its Deal
type Founder struct {
	Name     string
	Email    string
	Bio      string
	LinkedIn string
}

// Deal represents a prospective or closed investment
// Financial amounts are nil when unknown. Unknown is never the same as zero.
type Deal struct {
	ID          uuid.UUID
	CompanyName string
	Stage       Stage
	Status      DealStatus

	DealSize        *decimal.Decimal
	Valuation       *decimal.Decimal
	RaisingAmount   *decimal.Decimal
	ConfirmedAmount *decimal.Decimal // May exceed RaisingAmount (oversubscription)
	RevenueAmount   *decimal.Decimal

	// Stage-entry stamps. Set once on first entry, never cleared.
	SourcingMeetingBookedAt *time.Time
	PartnerReviewStartedAt  *time.Time
	CloseDate               *time.Time

	Founders  []Founder
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDeal creates a deal in the initial sourcing stage
func NewDeal(companyName string, founders []Founder, now time.Time) Deal {
	return Deal{
		ID:          uuid.New(),
		CompanyName: companyName,
		Stage:       StageSourcing,
		Status:      DealStatusActive,
		Founders:    append([]Founder(nil), founders...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate ensures the deal adheres to domain rules
func (d *Deal) Validate() error {
	if strings.TrimSpace(d.CompanyName) == "" {
		return validationError("deal company name cannot be empty")
	}

	if !d.Stage.IsValid() {
		return validationError("unknown deal stage " + string(d.Stage))
	}

	if d.Status != DealStatusActive && d.Status != DealStatusArchived {
		return validationError("deal status must be active or archived")
	}

	amounts := map[string]*decimal.Decimal{
		"deal_size":        d.DealSize,
		"valuation":        d.Valuation,
		"raising_amount":   d.RaisingAmount,
		"confirmed_amount": d.ConfirmedAmount,
		"revenue_amount":   d.RevenueAmount,
	}
	for name, amount := range amounts {
		if amount != nil && amount.IsNegative() {
			return validationError(name + " cannot be negative")
		}
	}

	for _, f := range d.Founders {
		if strings.TrimSpace(f.Name) == "" {
			return validationError("founder name cannot be empty")
		}
	}

	return nil
}

// IsActive reports whether the deal shows up in pipeline views
func (d *Deal) IsActive() bool {
	return d.Status != DealStatusArchived
}

// Clone returns a copy that shares no mutable state with d
func (d *Deal) Clone() Deal {
	c := *d
	c.DealSize = cloneAmount(d.DealSize)
	c.Valuation = cloneAmount(d.Valuation)
	c.RaisingAmount = cloneAmount(d.RaisingAmount)
	c.ConfirmedAmount = cloneAmount(d.ConfirmedAmount)
	c.RevenueAmount = cloneAmount(d.RevenueAmount)
	c.SourcingMeetingBookedAt = cloneTime(d.SourcingMeetingBookedAt)
	c.PartnerReviewStartedAt = cloneTime(d.PartnerReviewStartedAt)
	c.CloseDate = cloneTime(d.CloseDate)
	if d.Founders != nil {
		c.Founders = append([]Founder(nil), d.Founders...)
	}
	return c
}

// ConfirmedPercent returns confirmed / raising * 100, not clamped at 100
// Returns false when either amount is unknown or nothing is being raised.
func (d *Deal) ConfirmedPercent() (decimal.Decimal, bool) {
	if d.RaisingAmount == nil || d.ConfirmedAmount == nil || d.RaisingAmount.IsZero() {
		return decimal.Zero, false
	}
	return d.ConfirmedAmount.Div(*d.RaisingAmount).Mul(decimal.NewFromInt(100)), true
}

// OversubscriptionPercent returns (confirmed - raising) / raising * 100
// Negative while the round is still short. Same guards as ConfirmedPercent.
func (d *Deal) OversubscriptionPercent() (decimal.Decimal, bool) {
	if d.RaisingAmount == nil || d.ConfirmedAmount == nil || d.RaisingAmount.IsZero() {
		return decimal.Zero, false
	}
	excess := d.ConfirmedAmount.Sub(*d.RaisingAmount)
	return excess.Div(*d.RaisingAmount).Mul(decimal.NewFromInt(100)), true
}

// ParseDealStatus converts an external status string
func ParseDealStatus(s string) (DealStatus, error) {
	switch status := DealStatus(s); status {
	case DealStatusActive, DealStatusArchived:
		return status, nil
	}
	return "", validationError("unknown deal status " + s)
}

// ApplyStatus returns a copy of deal with the given status
// Setting the status a deal already has is a no-op and keeps UpdatedAt.
func ApplyStatus(deal Deal, status DealStatus, now time.Time) (Deal, error) {
	if status != DealStatusActive && status != DealStatusArchived {
		return deal, validationError("deal status must be active or archived")
	}

	next := deal.Clone()
	if next.Status == status {
		return next, nil
	}
	next.Status = status
	next.UpdatedAt = now
	return next, nil
}

// AmountChange edits one money field. The zero value leaves the field alone.
type AmountChange struct {
	Set   bool
	Value *decimal.Decimal // nil with Set marks the amount unknown
}

// FinancialsUpdate lists the money fields to edit
type FinancialsUpdate struct {
	DealSize        AmountChange
	Valuation       AmountChange
	RaisingAmount   AmountChange
	ConfirmedAmount AmountChange
	RevenueAmount   AmountChange
}

// IsEmpty reports whether the update would change nothing
func (u FinancialsUpdate) IsEmpty() bool {
	return !u.DealSize.Set && !u.Valuation.Set && !u.RaisingAmount.Set &&
		!u.ConfirmedAmount.Set && !u.RevenueAmount.Set
}

// ApplyFinancials returns a validated copy of deal with the update applied
// Stage and stamps are never touched.
func ApplyFinancials(deal Deal, update FinancialsUpdate, now time.Time) (Deal, error) {
	if update.IsEmpty() {
		return deal, validationError("no financial fields to update")
	}

	next := deal.Clone()
	for _, change := range []struct {
		dst **decimal.Decimal
		c   AmountChange
	}{
		{&next.DealSize, update.DealSize},
		{&next.Valuation, update.Valuation},
		{&next.RaisingAmount, update.RaisingAmount},
		{&next.ConfirmedAmount, update.ConfirmedAmount},
		{&next.RevenueAmount, update.RevenueAmount},
	} {
		if change.c.Set {
			*change.dst = cloneAmount(change.c.Value)
		}
	}
	next.UpdatedAt = now

	if err := next.Validate(); err != nil {
		return deal, err
	}
	return next, nil
}

func cloneAmount(a *decimal.Decimal) *decimal.Decimal {
	if a == nil {
		return nil
	}
	v := *a
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
