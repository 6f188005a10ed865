package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func level(l int) *int {
	return &l
}

func TestVote_EffectiveLevel(t *testing.T) {
	tests := []struct {
		name string
		vote Vote
		want int
	}{
		{"strong no wins over conviction", Vote{ConvictionLevel: level(4), StrongNo: true}, 0},
		{"strong no without conviction", Vote{StrongNo: true}, 0},
		{"missing conviction defaults to no", Vote{}, 1},
		{"following pack", Vote{ConvictionLevel: level(2)}, 2},
		{"strong yes plus", Vote{ConvictionLevel: level(4)}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.vote.EffectiveLevel())
		})
	}
}

func TestVote_Validate(t *testing.T) {
	valid := func() Vote {
		return Vote{ID: uuid.New(), DealID: uuid.New(), LPID: uuid.New(), ConvictionLevel: level(3)}
	}

	tests := []struct {
		name    string
		mutate  func(v *Vote)
		wantErr bool
		errMsg  string
	}{
		{"valid vote", func(v *Vote) {}, false, ""},
		{"no conviction is valid", func(v *Vote) { v.ConvictionLevel = nil }, false, ""},
		{"missing deal", func(v *Vote) { v.DealID = uuid.Nil }, true, "vote must reference a deal"},
		{"missing partner", func(v *Vote) { v.LPID = uuid.Nil }, true, "vote must reference a partner"},
		{"conviction zero", func(v *Vote) { v.ConvictionLevel = level(0) }, true, "conviction level must be between 1 and 4"},
		{"conviction five", func(v *Vote) { v.ConvictionLevel = level(5) }, true, "conviction level must be between 1 and 4"},
		{"unknown pain level", func(v *Vote) { v.PainPointLevel = "unbearable" }, true, "unknown pain point level"},
		{"unknown pilot response", func(v *Vote) { v.PilotCustomerResponse = "sure" }, true, "unknown pilot customer response"},
		{"unknown buying response", func(v *Vote) { v.BuyingInterestResponse = "yes" }, true, "unknown buying interest response"},
		{
			"all ordinals answered",
			func(v *Vote) {
				v.HasPainPoint = true
				v.PainPointLevel = PainCritical
				v.PilotCustomerInterest = true
				v.PilotCustomerResponse = PilotHellYes
				v.WouldBuy = true
				v.BuyingInterestResponse = BuyAbsolutely
			},
			false, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid()
			tt.mutate(&v)

			err := v.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStrongSignalThresholds(t *testing.T) {
	strongPain := map[PainPointLevel]bool{PainRealProblem: true, PainMajorPain: true, PainCritical: true}
	for _, l := range painPointOrder {
		assert.Equal(t, strongPain[l], l.IsStrongSignal(), string(l))
	}

	strongPilot := map[PilotResponse]bool{
		PilotCautiouslyInterested: true, PilotInterestedWithConditions: true, PilotVeryInterested: true, PilotHellYes: true,
	}
	for _, r := range pilotResponseOrder {
		assert.Equal(t, strongPilot[r], r.IsStrongSignal(), string(r))
	}

	strongBuy := map[BuyingInterest]bool{BuyProbably: true, BuyVeryLikely: true, BuyAbsolutely: true}
	for _, b := range buyingInterestOrder {
		assert.Equal(t, strongBuy[b], b.IsStrongSignal(), string(b))
	}

	// Unanswered is never a strong signal
	assert.False(t, PainPointLevel("").IsStrongSignal())
	assert.False(t, PilotResponse("").IsStrongSignal())
	assert.False(t, BuyingInterest("").IsStrongSignal())
}

func TestOrdinalTables_HaveSevenPoints(t *testing.T) {
	assert.Len(t, painPointOrder, 7)
	assert.Len(t, pilotResponseOrder, 7)
	assert.Len(t, buyingInterestOrder, 7)

	assert.Equal(t, 0, PainNotAtAll.Rank())
	assert.Equal(t, 6, PilotHellYes.Rank())
	assert.Equal(t, -1, BuyingInterest("").Rank())
}

func TestVote_HasFeedback(t *testing.T) {
	v := Vote{}
	assert.False(t, v.HasFeedback())

	v.PriceFeedback = "too expensive for SMBs"
	assert.True(t, v.HasFeedback())
}
