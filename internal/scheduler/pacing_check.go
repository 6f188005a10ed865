package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/dealflow-backend/internal/domain"
	"github.com/simaogato/dealflow-backend/internal/usecase/report"
)

// QuarterPacer computes the pacing view for a quarter
type QuarterPacer interface {
	QuarterPacing(ctx context.Context, q domain.Quarter, now time.Time) (*report.QuarterSummary, error)
}

// PacingCheckJob logs how the current quarter is tracking against its goal
type PacingCheckJob struct {
	log      zerolog.Logger
	pacer    QuarterPacer
	location *time.Location
	timeout  time.Duration
	now      func() time.Time
}

// PacingCheckConfig holds configuration for the pacing check job
type PacingCheckConfig struct {
	Log      zerolog.Logger
	Pacer    QuarterPacer
	Location *time.Location
	Timeout  time.Duration // 30s when zero
	Now      func() time.Time
}

// NewPacingCheckJob creates a new pacing check job
func NewPacingCheckJob(cfg PacingCheckConfig) *PacingCheckJob {
	job := &PacingCheckJob{
		log:      cfg.Log.With().Str("job", "pacing_check").Logger(),
		pacer:    cfg.Pacer,
		location: cfg.Location,
		timeout:  cfg.Timeout,
		now:      cfg.Now,
	}
	if job.location == nil {
		job.location = time.UTC
	}
	if job.timeout == 0 {
		job.timeout = 30 * time.Second
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job
}

// Name returns the job name
func (j *PacingCheckJob) Name() string {
	return "pacing_check"
}

// Run computes current-quarter pacing
// Behind pace is a warning, not a job failure.
func (j *PacingCheckJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	now := j.now().In(j.location)
	q := domain.QuarterOf(now)

	summary, err := j.pacer.QuarterPacing(ctx, q, now)
	if err != nil {
		return fmt.Errorf("failed to compute pacing for %s: %w", q, err)
	}

	p := summary.Pacing
	if !summary.HasGoal {
		j.log.Info().Str("quarter", q.String()).Int("deals_invested", p.DealsInvested).Msg("No investment goal set for quarter")
		return nil
	}

	event := j.log.Info()
	msg := "Quarter on track"
	if !p.OnTrack {
		event = j.log.Warn().Int("behind_by", p.BehindBy)
		msg = "Quarter behind pace"
	}

	event.
		Str("quarter", q.String()).
		Int("target_deals", p.TargetDeals).
		Int("deals_invested", p.DealsInvested).
		Int("expected_by_now", p.ExpectedByNow).
		Float64("progress_percent", p.Progress.ProgressPercent).
		Str("velocity", p.Velocity.String()).
		Str("required_pace", p.RequiredPace.String()).
		Msg(msg)

	return nil
}
