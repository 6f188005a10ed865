package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/dealflow-backend/internal/domain"
	"github.com/simaogato/dealflow-backend/internal/usecase/pipeline"
	"github.com/simaogato/dealflow-backend/internal/usecase/report"
)

// MockDealRepository is a mock implementation of DealRepository for testing
type MockDealRepository struct {
	mock.Mock
}

func (m *MockDealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	args := m.Called(ctx, deal)
	return args.Error(0)
}

func (m *MockDealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deal), args.Error(1)
}

func (m *MockDealRepository) List(ctx context.Context, statusFilter domain.DealStatus) ([]*domain.Deal, error) {
	args := m.Called(ctx, statusFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Deal), args.Error(1)
}

func (m *MockDealRepository) Transition(ctx context.Context, id uuid.UUID, fn domain.TransitionFunc) (*domain.Deal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	next, err := fn(*args.Get(0).(*domain.Deal))
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (m *MockDealRepository) Update(ctx context.Context, id uuid.UUID, fn domain.TransitionFunc) (*domain.Deal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	next, err := fn(*args.Get(0).(*domain.Deal))
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// MockVoteRepository is a mock implementation of VoteRepository for testing
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Upsert(ctx context.Context, vote *domain.Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *MockVoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vote), args.Error(1)
}

func (m *MockVoteRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]*domain.Vote, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Vote), args.Error(1)
}

func (m *MockVoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockGoalRepository is a mock implementation of GoalRepository for testing
type MockGoalRepository struct {
	mock.Mock
}

func (m *MockGoalRepository) Upsert(ctx context.Context, goal *domain.InvestmentGoal) error {
	args := m.Called(ctx, goal)
	return args.Error(0)
}

func (m *MockGoalRepository) CreateIfAbsent(ctx context.Context, goal *domain.InvestmentGoal) (bool, error) {
	args := m.Called(ctx, goal)
	return args.Bool(0), args.Error(1)
}

func (m *MockGoalRepository) Get(ctx context.Context, year, quarter int) (*domain.InvestmentGoal, error) {
	args := m.Called(ctx, year, quarter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvestmentGoal), args.Error(1)
}

func (m *MockGoalRepository) ListByYear(ctx context.Context, year int) ([]*domain.InvestmentGoal, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InvestmentGoal), args.Error(1)
}

var fixedNow = time.Date(2025, 8, 16, 9, 0, 0, 0, time.UTC)

type fixture struct {
	deals  *MockDealRepository
	votes  *MockVoteRepository
	goals  *MockGoalRepository
	server *Server
}

func newFixture() *fixture {
	f := &fixture{
		deals: new(MockDealRepository),
		votes: new(MockVoteRepository),
		goals: new(MockGoalRepository),
	}
	clock := func() time.Time { return fixedNow }
	pipelineService := pipeline.NewPipelineService(f.deals, f.votes, zerolog.Nop()).WithClock(clock)
	reportService := report.NewReportService(f.deals, f.votes, f.goals, time.UTC)
	f.server = NewServer(pipelineService, reportService)
	f.server.now = clock
	return f
}

func mustStruct(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "error should be a gRPC status")
	assert.Equal(t, code, st.Code(), st.Message())
}

func TestCreateDeal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.deals.On("Create", ctx, mock.AnythingOfType("*domain.Deal")).Return(nil)

	resp, err := f.server.CreateDeal(ctx, mustStruct(t, map[string]interface{}{
		"company_name":   "Acme",
		"raising_amount": "1000000",
		"founders": []interface{}{
			map[string]interface{}{"name": "Ada Lovelace", "email": "ada@acme.io"},
		},
	}))

	require.NoError(t, err)
	deal := resp.GetFields()["deal"].GetStructValue().AsMap()
	assert.Equal(t, "Acme", deal["company_name"])
	assert.Equal(t, "sourcing", deal["stage"])
	assert.Equal(t, "1000000", deal["raising_amount"])
	assert.Nil(t, deal["valuation"])
	assert.Len(t, deal["founders"], 1)
	f.deals.AssertExpectations(t)
}

func TestCreateDeal_InvalidAmount(t *testing.T) {
	f := newFixture()

	_, err := f.server.CreateDeal(context.Background(), mustStruct(t, map[string]interface{}{
		"company_name": "Acme",
		"valuation":    "ten million",
	}))

	requireCode(t, err, codes.InvalidArgument)
	f.deals.AssertNotCalled(t, "Create")
}

func TestTransitionStage(t *testing.T) {
	tests := []struct {
		name         string
		current      domain.Stage
		target       string
		dealID       string
		expectedCode codes.Code
	}{
		{name: "Forward Step", current: domain.StageSourcing, target: "sourcing_reached_out", expectedCode: codes.OK},
		{name: "Skipping Ahead", current: domain.StageSourcing, target: "offer", expectedCode: codes.FailedPrecondition},
		{name: "Unknown Stage", current: domain.StageSourcing, target: "series_z", expectedCode: codes.InvalidArgument},
		{name: "Bad Deal ID", current: domain.StageSourcing, target: "offer", dealID: "not-a-uuid", expectedCode: codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			deal := domain.NewDeal("Acme", nil, fixedNow.AddDate(0, -1, 0))
			deal.Stage = tt.current
			f.deals.On("Transition", ctx, deal.ID).Return(&deal, nil).Maybe()

			dealID := tt.dealID
			if dealID == "" {
				dealID = deal.ID.String()
			}

			resp, err := f.server.TransitionStage(ctx, mustStruct(t, map[string]interface{}{
				"deal_id":      dealID,
				"target_stage": tt.target,
			}))

			if tt.expectedCode == codes.OK {
				require.NoError(t, err)
				got := resp.GetFields()["deal"].GetStructValue().AsMap()
				assert.Equal(t, tt.target, got["stage"])
				return
			}
			requireCode(t, err, tt.expectedCode)
		})
	}
}

func TestTransitionStage_RejectionListsLegalTargets(t *testing.T) {
	tests := []struct {
		name          string
		current       domain.Stage
		target        string
		expectedLegal []interface{}
	}{
		{
			name:          "Skipping Ahead From Sourcing",
			current:       domain.StageSourcing,
			target:        "offer",
			expectedLegal: []interface{}{"sourcing_reached_out", "closed_lost_passed", "closed_lost_rejected"},
		},
		{
			name:          "Same Stage",
			current:       domain.StagePartnerReview,
			target:        "partner_review",
			expectedLegal: []interface{}{"sourcing_meeting_done_deciding", "offer", "closed_lost_passed", "closed_lost_rejected"},
		},
		{
			name:          "Terminal Stage",
			current:       domain.StageClosedLostPassed,
			target:        "sourcing",
			expectedLegal: []interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			deal := domain.NewDeal("Acme", nil, fixedNow.AddDate(0, -1, 0))
			deal.Stage = tt.current
			f.deals.On("Transition", ctx, deal.ID).Return(&deal, nil)

			_, err := f.server.TransitionStage(ctx, mustStruct(t, map[string]interface{}{
				"deal_id":      deal.ID.String(),
				"target_stage": tt.target,
			}))

			requireCode(t, err, codes.FailedPrecondition)
			st, _ := status.FromError(err)
			require.Len(t, st.Details(), 1)
			detail, ok := st.Details()[0].(*structpb.Struct)
			require.True(t, ok, "detail should be a Struct")

			fields := detail.AsMap()
			assert.Equal(t, string(tt.current), fields["from_stage"])
			assert.Equal(t, tt.target, fields["target_stage"])
			assert.Equal(t, tt.expectedLegal, fields["legal_targets"])
		})
	}
}

func TestSetDealStatus(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		expectedCode codes.Code
	}{
		{name: "Archive", status: "archived", expectedCode: codes.OK},
		{name: "Restore", status: "active", expectedCode: codes.OK},
		{name: "Unknown Status", status: "deleted", expectedCode: codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			deal := domain.NewDeal("Acme", nil, fixedNow.AddDate(0, -1, 0))
			f.deals.On("Update", ctx, deal.ID).Return(&deal, nil).Maybe()

			resp, err := f.server.SetDealStatus(ctx, mustStruct(t, map[string]interface{}{
				"deal_id": deal.ID.String(),
				"status":  tt.status,
			}))

			if tt.expectedCode != codes.OK {
				requireCode(t, err, tt.expectedCode)
				f.deals.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			got := resp.GetFields()["deal"].GetStructValue().AsMap()
			assert.Equal(t, tt.status, got["status"])
			assert.Equal(t, "sourcing", got["stage"])
		})
	}
}

func TestUpdateDealFinancials(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	deal := domain.NewDeal("Acme", nil, fixedNow.AddDate(0, -1, 0))
	valuation := decimal.NewFromInt(8000000)
	raising := decimal.NewFromInt(1000000)
	deal.Valuation = &valuation
	deal.RaisingAmount = &raising
	f.deals.On("Update", ctx, deal.ID).Return(&deal, nil)

	resp, err := f.server.UpdateDealFinancials(ctx, mustStruct(t, map[string]interface{}{
		"deal_id":          deal.ID.String(),
		"confirmed_amount": "1200000",
		"valuation":        nil,
	}))

	require.NoError(t, err)
	got := resp.GetFields()["deal"].GetStructValue().AsMap()
	assert.Equal(t, "1200000", got["confirmed_amount"])
	assert.Nil(t, got["valuation"], "explicit null clears the amount")
	assert.Equal(t, "1000000", got["raising_amount"], "absent keys are left alone")
}

func TestUpdateDealFinancials_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]interface{}
	}{
		{name: "No Amounts", fields: map[string]interface{}{}},
		{name: "Negative Amount", fields: map[string]interface{}{"valuation": "-5"}},
		{name: "Empty String", fields: map[string]interface{}{"valuation": ""}},
		{name: "Not A Number", fields: map[string]interface{}{"valuation": "a lot"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			deal := domain.NewDeal("Acme", nil, fixedNow.AddDate(0, -1, 0))
			f.deals.On("Update", ctx, deal.ID).Return(&deal, nil).Maybe()

			tt.fields["deal_id"] = deal.ID.String()
			_, err := f.server.UpdateDealFinancials(ctx, mustStruct(t, tt.fields))

			requireCode(t, err, codes.InvalidArgument)
		})
	}
}

func TestTransitionStage_StampsSourcingMeeting(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	deal := domain.NewDeal("Acme", nil, fixedNow.AddDate(0, -1, 0))
	deal.Stage = domain.StageSourcingReachedOut
	f.deals.On("Transition", ctx, deal.ID).Return(&deal, nil)

	resp, err := f.server.TransitionStage(ctx, mustStruct(t, map[string]interface{}{
		"deal_id":      deal.ID.String(),
		"target_stage": "sourcing_meeting_booked",
	}))

	require.NoError(t, err)
	got := resp.GetFields()["deal"].GetStructValue().AsMap()
	assert.Equal(t, "2025-08-16T09:00:00Z", got["sourcing_meeting_booked_at"])
}

func TestSubmitVote(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	deal := domain.NewDeal("Acme", nil, fixedNow)
	lpID := uuid.New()
	level := 4

	f.deals.On("GetByID", ctx, deal.ID).Return(&deal, nil)
	f.votes.On("Upsert", ctx, mock.AnythingOfType("*domain.Vote")).Return(nil)
	f.votes.On("ListByDeal", ctx, deal.ID).Return([]*domain.Vote{
		{ID: uuid.New(), DealID: deal.ID, LPID: lpID, ConvictionLevel: &level, HasPainPoint: true, PainPointLevel: domain.PainCritical},
	}, nil)

	resp, err := f.server.SubmitVote(ctx, mustStruct(t, map[string]interface{}{
		"deal_id":          deal.ID.String(),
		"lp_id":            lpID.String(),
		"conviction_level": 4,
		"has_pain_point":   true,
		"pain_point_level": "critical",
	}))

	require.NoError(t, err)
	vote := resp.GetFields()["vote"].GetStructValue().AsMap()
	summary := resp.GetFields()["summary"].GetStructValue().AsMap()
	assert.Equal(t, "Strong Yes +", vote["conviction_label"])
	assert.Equal(t, float64(1), summary["total_votes"])
	assert.Equal(t, float64(1), summary["net_score"])
	assert.Equal(t, float64(1), summary["strong_pain_signals"])
	assert.Equal(t, 100.0, summary["pain_point_percentage"])
}

func TestSubmitVote_InvalidLevel(t *testing.T) {
	f := newFixture()

	_, err := f.server.SubmitVote(context.Background(), mustStruct(t, map[string]interface{}{
		"deal_id":          uuid.NewString(),
		"lp_id":            uuid.NewString(),
		"conviction_level": 2.5,
	}))

	requireCode(t, err, codes.InvalidArgument)
}

func TestDeleteVote_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	id := uuid.New()
	f.votes.On("GetByID", ctx, id).Return(nil, fmt.Errorf("vote %s: %w", id, domain.ErrNotFound))

	_, err := f.server.DeleteVote(ctx, mustStruct(t, map[string]interface{}{"vote_id": id.String()}))

	requireCode(t, err, codes.NotFound)
}

func TestGetDealReport_NextMeeting(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	raising := decimal.NewFromInt(1000000)
	confirmed := decimal.NewFromInt(1300000)
	deal := domain.NewDeal("Acme", []domain.Founder{{Name: "Ada Lovelace", Email: "ada@acme.io"}}, fixedNow.AddDate(0, -1, 0))
	deal.Stage = domain.StageSourcingMeetingBooked
	deal.RaisingAmount = &raising
	deal.ConfirmedAmount = &confirmed

	f.deals.On("GetByID", ctx, deal.ID).Return(&deal, nil)
	f.votes.On("ListByDeal", ctx, deal.ID).Return([]*domain.Vote{}, nil)

	resp, err := f.server.GetDealReport(ctx, mustStruct(t, map[string]interface{}{
		"deal_id": deal.ID.String(),
		"events": []interface{}{
			map[string]interface{}{
				"id":        "evt-later",
				"title":     "Acme follow-up",
				"start":     "2025-08-25T15:00:00Z",
				"attendees": []interface{}{},
			},
			map[string]interface{}{
				"id":        "evt-soon",
				"title":     "Intro call",
				"start":     "2025-08-19T15:00:00Z",
				"attendees": []interface{}{"ADA@acme.io"},
			},
			map[string]interface{}{
				"id":        "evt-cancelled",
				"title":     "Acme",
				"start":     "2025-08-17T15:00:00Z",
				"cancelled": true,
			},
		},
	}))

	require.NoError(t, err)
	fields := resp.AsMap()
	next := fields["next_meeting"].(map[string]interface{})
	assert.Equal(t, "evt-soon", next["event_id"])
	assert.Equal(t, float64(3), next["days_until"])
	assert.Equal(t, "130", fields["confirmed_percent"])
	assert.Equal(t, "30", fields["oversubscription_percent"])
}

func TestGetDealReport_BadEvent(t *testing.T) {
	f := newFixture()

	_, err := f.server.GetDealReport(context.Background(), mustStruct(t, map[string]interface{}{
		"deal_id": uuid.NewString(),
		"events": []interface{}{
			map[string]interface{}{"id": "evt-1", "start": "next tuesday"},
		},
	}))

	requireCode(t, err, codes.InvalidArgument)
	f.deals.AssertNotCalled(t, "GetByID")
}

func TestGetQuarterPacing_WithoutGoal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.deals.On("List", ctx, domain.DealStatus("")).Return([]*domain.Deal{}, nil)
	f.goals.On("Get", ctx, 2025, 3).Return(nil, domain.ErrNotFound)

	resp, err := f.server.GetQuarterPacing(ctx, mustStruct(t, map[string]interface{}{}))

	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, "2025-Q3", fields["quarter"])
	assert.Equal(t, false, fields["has_goal"])
	assert.Equal(t, true, fields["on_track"])
	velocity := fields["velocity"].(map[string]interface{})
	assert.Equal(t, true, velocity["infinite"])
	assert.Equal(t, "∞", velocity["display"])
}

func TestGetQuarterPacing_InvalidQuarter(t *testing.T) {
	f := newFixture()

	_, err := f.server.GetQuarterPacing(context.Background(), mustStruct(t, map[string]interface{}{
		"year":    2025,
		"quarter": 5,
	}))

	requireCode(t, err, codes.InvalidArgument)
}

func TestGetMonthlyActivity_InvalidMonth(t *testing.T) {
	f := newFixture()

	_, err := f.server.GetMonthlyActivity(context.Background(), mustStruct(t, map[string]interface{}{"month": 13}))

	requireCode(t, err, codes.InvalidArgument)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode codes.Code
	}{
		{"Validation", fmt.Errorf("wrap: %w", domain.ErrValidation), codes.InvalidArgument},
		{"Invalid Transition", &domain.InvalidTransitionError{From: domain.StageSourcing, To: domain.StageOffer}, codes.FailedPrecondition},
		{"Not Found", fmt.Errorf("deal x: %w", domain.ErrNotFound), codes.NotFound},
		{"Duplicate", fmt.Errorf("wrap: %w", domain.ErrDuplicate), codes.AlreadyExists},
		{"Deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"Status Passthrough", status.Error(codes.Unavailable, "db down"), codes.Unavailable},
		{"Unknown", errors.New("connection reset"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCode(t, mapError(tt.err), tt.expectedCode)
		})
	}

	assert.NoError(t, mapError(nil))
}

// TestServiceDesc_OverBufconn drives the registered service through a real gRPC stack
func TestServiceDesc_OverBufconn(t *testing.T) {
	f := newFixture()
	f.deals.On("List", mock.Anything, domain.DealStatusActive).Return([]*domain.Deal{}, nil)

	lis := bufconn.Listen(1024 * 1024)
	srv := grpclib.NewServer(grpclib.ChainUnaryInterceptor(
		RecoveryInterceptor(zerolog.Nop()),
		LoggingInterceptor(zerolog.Nop()),
	))
	RegisterDealflowServiceServer(srv, f.server)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	resp := new(structpb.Struct)
	err = conn.Invoke(context.Background(), FullMethod("GetPortfolio"), &structpb.Struct{}, resp)

	require.NoError(t, err)
	assert.Empty(t, resp.GetFields()["entries"].GetListValue().GetValues())

	err = conn.Invoke(context.Background(), FullMethod("TransitionStage"), mustStruct(t, map[string]interface{}{
		"deal_id": "nope",
	}), new(structpb.Struct))
	requireCode(t, err, codes.InvalidArgument)
}
