package grpc

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/dealflow-backend/internal/domain"
	"github.com/simaogato/dealflow-backend/internal/usecase/aggregator"
	"github.com/simaogato/dealflow-backend/internal/usecase/matcher"
	"github.com/simaogato/dealflow-backend/internal/usecase/pacing"
	"github.com/simaogato/dealflow-backend/internal/usecase/report"
)

// Request field readers. A missing field reads as the zero value; a field of
// the wrong kind is an InvalidArgument.

func stringField(req *structpb.Struct, key string) (string, error) {
	v, ok := req.GetFields()[key]
	if !ok || isNull(v) {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", key)
	}
	return s.StringValue, nil
}

func boolField(req *structpb.Struct, key string) (bool, error) {
	v, ok := req.GetFields()[key]
	if !ok || isNull(v) {
		return false, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, status.Errorf(codes.InvalidArgument, "%s must be a bool", key)
	}
	return b.BoolValue, nil
}

// intField returns nil when the field is absent or null
func intField(req *structpb.Struct, key string) (*int, error) {
	v, ok := req.GetFields()[key]
	if !ok || isNull(v) {
		return nil, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != float64(int(n.NumberValue)) {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
	}
	i := int(n.NumberValue)
	return &i, nil
}

func uuidField(req *structpb.Struct, key string) (uuid.UUID, error) {
	raw, err := stringField(req, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return id, nil
}

// decimalField returns nil when the field is absent or null
func decimalField(req *structpb.Struct, key string) (*decimal.Decimal, error) {
	raw, err := stringField(req, key)
	if err != nil || raw == "" {
		return nil, err
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return &d, nil
}

// amountChangeField distinguishes an absent key (no change) from null (unknown)
func amountChangeField(req *structpb.Struct, key string) (domain.AmountChange, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return domain.AmountChange{}, nil
	}
	if isNull(v) {
		return domain.AmountChange{Set: true}, nil
	}
	d, err := decimalField(req, key)
	if err != nil {
		return domain.AmountChange{}, err
	}
	if d == nil {
		return domain.AmountChange{}, status.Errorf(codes.InvalidArgument, "%s cannot be empty; use null to clear it", key)
	}
	return domain.AmountChange{Set: true, Value: d}, nil
}

// timeField parses an RFC 3339 string. Absent fields return the zero time.
func timeField(req *structpb.Struct, key string) (time.Time, error) {
	raw, err := stringField(req, key)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return t, nil
}

func listField(req *structpb.Struct, key string) ([]*structpb.Value, error) {
	v, ok := req.GetFields()[key]
	if !ok || isNull(v) {
		return nil, nil
	}
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list", key)
	}
	return l.ListValue.GetValues(), nil
}

func isNull(v *structpb.Value) bool {
	_, ok := v.GetKind().(*structpb.Value_NullValue)
	return ok
}

func structList(req *structpb.Struct, key string) ([]*structpb.Struct, error) {
	values, err := listField(req, key)
	if err != nil {
		return nil, err
	}
	out := make([]*structpb.Struct, 0, len(values))
	for i, v := range values {
		s, ok := v.GetKind().(*structpb.Value_StructValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be an object", key, i)
		}
		out = append(out, s.StructValue)
	}
	return out, nil
}

func stringList(req *structpb.Struct, key string) ([]string, error) {
	values, err := listField(req, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for i, v := range values {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be a string", key, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

func parseFounders(req *structpb.Struct) ([]domain.Founder, error) {
	items, err := structList(req, "founders")
	if err != nil {
		return nil, err
	}

	founders := make([]domain.Founder, 0, len(items))
	for _, item := range items {
		var f domain.Founder
		for key, dst := range map[string]*string{"name": &f.Name, "email": &f.Email, "bio": &f.Bio, "linkedin": &f.LinkedIn} {
			if *dst, err = stringField(item, key); err != nil {
				return nil, err
			}
		}
		founders = append(founders, f)
	}
	return founders, nil
}

func parseEvents(req *structpb.Struct) ([]domain.CalendarEvent, error) {
	items, err := structList(req, "events")
	if err != nil {
		return nil, err
	}

	events := make([]domain.CalendarEvent, 0, len(items))
	for _, item := range items {
		var e domain.CalendarEvent
		if e.ID, err = stringField(item, "id"); err != nil {
			return nil, err
		}
		if e.Title, err = stringField(item, "title"); err != nil {
			return nil, err
		}
		if e.Description, err = stringField(item, "description"); err != nil {
			return nil, err
		}
		if e.Start, err = timeField(item, "start"); err != nil {
			return nil, err
		}
		if e.End, err = timeField(item, "end"); err != nil {
			return nil, err
		}
		if e.Attendees, err = stringList(item, "attendees"); err != nil {
			return nil, err
		}
		if e.Cancelled, err = boolField(item, "cancelled"); err != nil {
			return nil, err
		}
		if e.Start.IsZero() {
			return nil, status.Errorf(codes.InvalidArgument, "event %q is missing a start time", e.ID)
		}
		events = append(events, e)
	}
	return events, nil
}

func parseVote(req *structpb.Struct) (domain.Vote, error) {
	var v domain.Vote
	var err error

	if v.DealID, err = uuidField(req, "deal_id"); err != nil {
		return v, err
	}
	if v.LPID, err = uuidField(req, "lp_id"); err != nil {
		return v, err
	}
	if v.ConvictionLevel, err = intField(req, "conviction_level"); err != nil {
		return v, err
	}

	for key, dst := range map[string]*bool{
		"strong_no":               &v.StrongNo,
		"has_pain_point":          &v.HasPainPoint,
		"pilot_customer_interest": &v.PilotCustomerInterest,
		"would_buy":               &v.WouldBuy,
	} {
		if *dst, err = boolField(req, key); err != nil {
			return v, err
		}
	}

	var pain, pilot, buying string
	for key, dst := range map[string]*string{
		"pain_point_level":         &pain,
		"pilot_customer_response":  &pilot,
		"buying_interest_response": &buying,
		"comments":                 &v.Comments,
		"solution_feedback":        &v.SolutionFeedback,
		"pilot_customer_feedback":  &v.PilotCustomerFeedback,
		"buying_interest_feedback": &v.BuyingInterestFeedback,
		"price_feedback":           &v.PriceFeedback,
		"additional_notes":         &v.AdditionalNotes,
	} {
		if *dst, err = stringField(req, key); err != nil {
			return v, err
		}
	}
	v.PainPointLevel = domain.PainPointLevel(pain)
	v.PilotCustomerResponse = domain.PilotResponse(pilot)
	v.BuyingInterestResponse = domain.BuyingInterest(buying)

	return v, nil
}

// Response encoders. structpb only accepts []interface{} and map[string]interface{}
// for nested values, so every list is built that way.

func toStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func optionalDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func dealFields(d domain.Deal) map[string]interface{} {
	founders := make([]interface{}, 0, len(d.Founders))
	for _, f := range d.Founders {
		founders = append(founders, map[string]interface{}{
			"name":     f.Name,
			"email":    f.Email,
			"bio":      f.Bio,
			"linkedin": f.LinkedIn,
		})
	}

	return map[string]interface{}{
		"id":                         d.ID.String(),
		"company_name":               d.CompanyName,
		"stage":                      string(d.Stage),
		"stage_label":                d.Stage.Label(),
		"status":                     string(d.Status),
		"deal_size":                  optionalDecimal(d.DealSize),
		"valuation":                  optionalDecimal(d.Valuation),
		"raising_amount":             optionalDecimal(d.RaisingAmount),
		"confirmed_amount":           optionalDecimal(d.ConfirmedAmount),
		"revenue_amount":             optionalDecimal(d.RevenueAmount),
		"sourcing_meeting_booked_at": optionalTime(d.SourcingMeetingBookedAt),
		"partner_review_started_at":  optionalTime(d.PartnerReviewStartedAt),
		"close_date":                 optionalTime(d.CloseDate),
		"founders":                   founders,
		"created_at":                 formatTime(d.CreatedAt),
		"updated_at":                 formatTime(d.UpdatedAt),
	}
}

func voteFields(v domain.Vote) map[string]interface{} {
	var level interface{}
	if v.ConvictionLevel != nil {
		level = *v.ConvictionLevel
	}

	return map[string]interface{}{
		"id":                       v.ID.String(),
		"deal_id":                  v.DealID.String(),
		"lp_id":                    v.LPID.String(),
		"conviction_level":         level,
		"conviction_label":         domain.ConvictionLabel(v.EffectiveLevel()),
		"strong_no":                v.StrongNo,
		"has_pain_point":           v.HasPainPoint,
		"pain_point_level":         string(v.PainPointLevel),
		"pilot_customer_interest":  v.PilotCustomerInterest,
		"pilot_customer_response":  string(v.PilotCustomerResponse),
		"would_buy":                v.WouldBuy,
		"buying_interest_response": string(v.BuyingInterestResponse),
		"comments":                 v.Comments,
		"solution_feedback":        v.SolutionFeedback,
		"pilot_customer_feedback":  v.PilotCustomerFeedback,
		"buying_interest_feedback": v.BuyingInterestFeedback,
		"price_feedback":           v.PriceFeedback,
		"additional_notes":         v.AdditionalNotes,
		"created_at":               formatTime(v.CreatedAt),
		"updated_at":               formatTime(v.UpdatedAt),
	}
}

func transitionFields(err *domain.InvalidTransitionError) map[string]interface{} {
	legal := make([]interface{}, 0, len(err.Legal))
	for _, stage := range err.Legal {
		legal = append(legal, stage.String())
	}
	return map[string]interface{}{
		"from_stage":    err.From.String(),
		"target_stage":  err.To.String(),
		"legal_targets": legal,
	}
}

func summaryFields(s aggregator.Summary) map[string]interface{} {
	return map[string]interface{}{
		"deal_id":                   s.DealID.String(),
		"total_votes":               s.TotalVotes,
		"strong_no_votes":           s.StrongNoVotes,
		"no_votes":                  s.NoVotes,
		"following_pack_votes":      s.FollowingPackVotes,
		"strong_yes_votes":          s.StrongYesVotes,
		"strong_yes_plus_votes":     s.StrongYesPlusVotes,
		"net_score":                 s.NetScore,
		"average_conviction":        s.AverageConviction,
		"pain_point_percentage":     s.PainPointPercentage,
		"pilot_interest_percentage": s.PilotInterestPercentage,
		"would_buy_percentage":      s.WouldBuyPercentage,
		"strong_pain_signals":       s.StrongPainSignals,
		"strong_pilot_signals":      s.StrongPilotSignals,
		"strong_buy_signals":        s.StrongBuySignals,
		"feedback_count":            s.FeedbackCount,
	}
}

func advisoryFields(a *matcher.Advisory) interface{} {
	if a == nil {
		return nil
	}
	return map[string]interface{}{
		"event_id":   a.EventID,
		"start_time": formatTime(a.StartTime),
		"days_until": a.DaysUntil,
	}
}

func dealReportFields(r *report.DealReport) map[string]interface{} {
	highlights := make([]interface{}, 0, len(r.Highlights))
	for _, v := range r.Highlights {
		highlights = append(highlights, voteFields(v))
	}

	return map[string]interface{}{
		"deal":                     dealFields(r.Deal),
		"summary":                  summaryFields(r.Summary),
		"next_meeting":             advisoryFields(r.NextMeeting),
		"confirmed_percent":        optionalDecimal(r.ConfirmedPercent),
		"oversubscription_percent": optionalDecimal(r.OversubscriptionPercent),
		"highlights":               highlights,
	}
}

func daysPerDealFields(d pacing.DaysPerDeal) map[string]interface{} {
	return map[string]interface{}{
		"days":     d.Days,
		"infinite": d.Infinite,
		"display":  d.String(),
	}
}

func quarterSummaryFields(q *report.QuarterSummary) map[string]interface{} {
	p := q.Pacing
	return map[string]interface{}{
		"quarter":  q.Quarter.String(),
		"has_goal": q.HasGoal,
		"goal": map[string]interface{}{
			"target_deals":      q.Goal.TargetDeals,
			"target_investment": q.Goal.TargetInvestment.String(),
		},
		"actual": map[string]interface{}{
			"deals_invested":      q.Actual.DealsInvested,
			"total_invested":      q.Actual.TotalInvested.String(),
			"portfolio_companies": q.Actual.PortfolioCompanies,
		},
		"progress": map[string]interface{}{
			"elapsed_days":     p.Progress.ElapsedDays,
			"total_days":       p.Progress.TotalDays,
			"remaining_days":   p.Progress.RemainingDays,
			"progress_percent": p.Progress.ProgressPercent,
		},
		"expected_by_now":             p.ExpectedByNow,
		"on_track":                    p.OnTrack,
		"behind_by":                   p.BehindBy,
		"velocity":                    daysPerDealFields(p.Velocity),
		"required_pace":               daysPerDealFields(p.RequiredPace),
		"investment_progress_percent": p.InvestmentProgressPercent,
	}
}

func activityFields(a pacing.ActivityCounts) map[string]interface{} {
	return map[string]interface{}{
		"talked_to":        a.TalkedTo,
		"sent_to_partners": a.SentToPartners,
		"invested":         a.Invested,
	}
}

func quarterFromRequest(req *structpb.Struct, now time.Time) (domain.Quarter, error) {
	q := domain.QuarterOf(now)

	year, err := intField(req, "year")
	if err != nil {
		return q, err
	}
	quarter, err := intField(req, "quarter")
	if err != nil {
		return q, err
	}

	if year != nil {
		q.Year = *year
	}
	if quarter != nil {
		q.Q = *quarter
	}
	if !q.IsValid() {
		return q, status.Errorf(codes.InvalidArgument, "invalid quarter %d", q.Q)
	}
	return q, nil
}
