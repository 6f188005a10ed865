package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/dealflow-backend/internal/domain"
	"github.com/simaogato/dealflow-backend/internal/usecase/pipeline"
	"github.com/simaogato/dealflow-backend/internal/usecase/report"
)

// Server implements the DealflowService gRPC server
type Server struct {
	PipelineService *pipeline.PipelineService
	ReportService   *report.ReportService

	now func() time.Time
}

// NewServer creates a new gRPC server instance
func NewServer(pipelineService *pipeline.PipelineService, reportService *report.ReportService) *Server {
	return &Server{
		PipelineService: pipelineService,
		ReportService:   reportService,
		now:             time.Now,
	}
}

// requestTime returns the optional "as_of" field, or the server clock
func (s *Server) requestTime(req *structpb.Struct) (time.Time, error) {
	asOf, err := timeField(req, "as_of")
	if err != nil {
		return time.Time{}, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	return asOf.In(s.ReportService.Location), nil
}

// CreateDeal handles the CreateDeal RPC
func (s *Server) CreateDeal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var input pipeline.CreateDealInput
	var err error

	if input.CompanyName, err = stringField(req, "company_name"); err != nil {
		return nil, err
	}
	if input.Founders, err = parseFounders(req); err != nil {
		return nil, err
	}
	for key, dst := range map[string]**decimal.Decimal{
		"deal_size":        &input.DealSize,
		"valuation":        &input.Valuation,
		"raising_amount":   &input.RaisingAmount,
		"confirmed_amount": &input.ConfirmedAmount,
		"revenue_amount":   &input.RevenueAmount,
	} {
		if *dst, err = decimalField(req, key); err != nil {
			return nil, err
		}
	}

	deal, err := s.PipelineService.CreateDeal(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{"deal": dealFields(*deal)})
}

// TransitionStage handles the TransitionStage RPC
func (s *Server) TransitionStage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	dealID, err := uuidField(req, "deal_id")
	if err != nil {
		return nil, err
	}

	raw, err := stringField(req, "target_stage")
	if err != nil {
		return nil, err
	}
	target, err := domain.ParseStage(raw)
	if err != nil {
		return nil, mapError(err)
	}

	deal, err := s.PipelineService.TransitionStage(ctx, dealID, target)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{"deal": dealFields(*deal)})
}

// SetDealStatus handles the SetDealStatus RPC
func (s *Server) SetDealStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	dealID, err := uuidField(req, "deal_id")
	if err != nil {
		return nil, err
	}

	raw, err := stringField(req, "status")
	if err != nil {
		return nil, err
	}
	dealStatus, err := domain.ParseDealStatus(raw)
	if err != nil {
		return nil, mapError(err)
	}

	deal, err := s.PipelineService.SetStatus(ctx, dealID, dealStatus)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{"deal": dealFields(*deal)})
}

// UpdateDealFinancials handles the UpdateDealFinancials RPC
// Only the amount keys present in the request are changed; an explicit null marks an amount unknown.
func (s *Server) UpdateDealFinancials(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	dealID, err := uuidField(req, "deal_id")
	if err != nil {
		return nil, err
	}

	var update domain.FinancialsUpdate
	for key, dst := range map[string]*domain.AmountChange{
		"deal_size":        &update.DealSize,
		"valuation":        &update.Valuation,
		"raising_amount":   &update.RaisingAmount,
		"confirmed_amount": &update.ConfirmedAmount,
		"revenue_amount":   &update.RevenueAmount,
	} {
		if *dst, err = amountChangeField(req, key); err != nil {
			return nil, err
		}
	}

	deal, err := s.PipelineService.UpdateFinancials(ctx, dealID, update)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{"deal": dealFields(*deal)})
}

// SubmitVote handles the SubmitVote RPC
func (s *Server) SubmitVote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, err := parseVote(req)
	if err != nil {
		return nil, err
	}

	vote, summary, err := s.PipelineService.SubmitVote(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"vote":    voteFields(*vote),
		"summary": summaryFields(summary),
	})
}

// DeleteVote handles the DeleteVote RPC
func (s *Server) DeleteVote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	voteID, err := uuidField(req, "vote_id")
	if err != nil {
		return nil, err
	}

	summary, err := s.PipelineService.DeleteVote(ctx, voteID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{"summary": summaryFields(summary)})
}

// GetDealSummary handles the GetDealSummary RPC
func (s *Server) GetDealSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	dealID, err := uuidField(req, "deal_id")
	if err != nil {
		return nil, err
	}

	summary, err := s.PipelineService.DealSummary(ctx, dealID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{"summary": summaryFields(summary)})
}

// GetDealReport handles the GetDealReport RPC
// The caller supplies the calendar events; the server never talks to a calendar provider.
func (s *Server) GetDealReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	dealID, err := uuidField(req, "deal_id")
	if err != nil {
		return nil, err
	}
	events, err := parseEvents(req)
	if err != nil {
		return nil, err
	}
	now, err := s.requestTime(req)
	if err != nil {
		return nil, err
	}

	dealReport, err := s.ReportService.DealReport(ctx, dealID, events, now)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(dealReportFields(dealReport))
}

// GetPortfolio handles the GetPortfolio RPC
func (s *Server) GetPortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entries, err := s.ReportService.Portfolio(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	rows := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]interface{}{
			"deal":    dealFields(e.Deal),
			"summary": summaryFields(e.Summary),
		})
	}

	return toStruct(map[string]interface{}{"entries": rows})
}

// GetQuarterPacing handles the GetQuarterPacing RPC
// Year and quarter default to the quarter containing as_of.
func (s *Server) GetQuarterPacing(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	now, err := s.requestTime(req)
	if err != nil {
		return nil, err
	}
	q, err := quarterFromRequest(req, now)
	if err != nil {
		return nil, err
	}

	summary, err := s.ReportService.QuarterPacing(ctx, q, now)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(quarterSummaryFields(summary))
}

// GetYearPacing handles the GetYearPacing RPC
func (s *Server) GetYearPacing(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	now, err := s.requestTime(req)
	if err != nil {
		return nil, err
	}
	year, err := intField(req, "year")
	if err != nil {
		return nil, err
	}
	y := now.Year()
	if year != nil {
		y = *year
	}

	summaries, err := s.ReportService.YearPacing(ctx, y, now)
	if err != nil {
		return nil, mapError(err)
	}

	quarters := make([]interface{}, 0, len(summaries))
	for i := range summaries {
		quarters = append(quarters, quarterSummaryFields(&summaries[i]))
	}

	return toStruct(map[string]interface{}{"year": y, "quarters": quarters})
}

// GetMonthlyActivity handles the GetMonthlyActivity RPC
func (s *Server) GetMonthlyActivity(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	now, err := s.requestTime(req)
	if err != nil {
		return nil, err
	}
	year, err := intField(req, "year")
	if err != nil {
		return nil, err
	}
	month, err := intField(req, "month")
	if err != nil {
		return nil, err
	}

	y, m := now.Year(), now.Month()
	if year != nil {
		y = *year
	}
	if month != nil {
		if *month < 1 || *month > 12 {
			return nil, status.Errorf(codes.InvalidArgument, "invalid month %d", *month)
		}
		m = time.Month(*month)
	}

	counts, err := s.ReportService.MonthlyActivity(ctx, y, m)
	if err != nil {
		return nil, mapError(err)
	}

	fields := activityFields(counts)
	fields["year"] = y
	fields["month"] = int(m)
	return toStruct(fields)
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	var transitionErr *domain.InvalidTransitionError
	switch {
	case errors.As(err, &transitionErr):
		return transitionStatus(transitionErr)
	case errors.Is(err, domain.ErrValidation):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		return status.Errorf(codes.AlreadyExists, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}

// transitionStatus carries the legal targets as a Struct detail so the client can re-offer them
func transitionStatus(err *domain.InvalidTransitionError) error {
	st := status.New(codes.FailedPrecondition, err.Error())

	detail, convErr := toStruct(transitionFields(err))
	if convErr != nil {
		return st.Err()
	}
	withDetail, detailErr := st.WithDetails(detail)
	if detailErr != nil {
		return st.Err()
	}
	return withDetail.Err()
}
