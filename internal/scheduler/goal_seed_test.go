package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockGoalSeeder is a mock implementation of GoalSeeder for testing
type MockGoalSeeder struct {
	mock.Mock
}

func (m *MockGoalSeeder) Seed(ctx context.Context, year int) (int, error) {
	args := m.Called(ctx, year)
	return args.Int(0), args.Error(1)
}

func TestGoalSeedJob_Run_SeedsCurrentAndNextYear(t *testing.T) {
	seeder := new(MockGoalSeeder)
	seeder.On("Seed", mock.Anything, 2025).Return(0, nil)
	seeder.On("Seed", mock.Anything, 2026).Return(4, nil)

	job := NewGoalSeedJob(zerolog.Nop(), seeder, time.UTC)
	job.now = func() time.Time { return time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC) }

	assert.NoError(t, job.Run())
	assert.Equal(t, "goal_seed", job.Name())
	seeder.AssertExpectations(t)
}

func TestGoalSeedJob_Run_StopsOnError(t *testing.T) {
	seeder := new(MockGoalSeeder)
	seeder.On("Seed", mock.Anything, 2025).Return(1, errors.New("db down"))

	job := NewGoalSeedJob(zerolog.Nop(), seeder, nil)
	job.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	err := job.Run()

	assert.ErrorContains(t, err, "failed to seed goals for 2025")
	seeder.AssertNotCalled(t, "Seed", mock.Anything, 2026)
}
