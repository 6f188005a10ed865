package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// GoalSeeder creates missing investment goals for a year
type GoalSeeder interface {
	Seed(ctx context.Context, year int) (int, error)
}

// GoalSeedJob keeps the current and the next year seeded with default goals,
// so a new year never starts without targets
type GoalSeedJob struct {
	log      zerolog.Logger
	seeder   GoalSeeder
	location *time.Location
	now      func() time.Time
}

// NewGoalSeedJob creates a new goal seed job
func NewGoalSeedJob(log zerolog.Logger, seeder GoalSeeder, loc *time.Location) *GoalSeedJob {
	if loc == nil {
		loc = time.UTC
	}
	return &GoalSeedJob{
		log:      log.With().Str("job", "goal_seed").Logger(),
		seeder:   seeder,
		location: loc,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *GoalSeedJob) Name() string {
	return "goal_seed"
}

// Run seeds the current and next year
func (j *GoalSeedJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	year := j.now().In(j.location).Year()
	for _, y := range []int{year, year + 1} {
		created, err := j.seeder.Seed(ctx, y)
		if err != nil {
			return fmt.Errorf("failed to seed goals for %d: %w", y, err)
		}
		if created > 0 {
			j.log.Info().Int("year", y).Int("created", created).Msg("Seeded investment goals")
		}
	}

	return nil
}
