package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock job for testing
type MockJob struct {
	name     string
	runCount atomic.Int32
	err      error
}

func (j *MockJob) Name() string {
	return j.name
}

func (j *MockJob) Run(ctx context.Context) error {
	j.runCount.Add(1)
	return j.err
}

func TestScheduler(t *testing.T) {
	s := NewScheduler()
	mockJob := &MockJob{name: "test_job"}

	// Run every second
	require.NoError(t, s.AddJob("* * * * * *", mockJob))

	s.Start()
	defer s.Stop()
	assert.True(t, s.isRunning)
	assert.False(t, s.Next().IsZero())

	assert.Eventually(t, func() bool {
		return mockJob.runCount.Load() > 0
	}, 3*time.Second, 50*time.Millisecond, "job did not run")

	before := mockJob.runCount.Load()
	require.NoError(t, s.RunJobNow("test_job"))
	assert.GreaterOrEqual(t, mockJob.runCount.Load(), before+1)

	assert.Error(t, s.RunJobNow("non_existent_job"))
}

func TestAddJobRejectsDuplicatesAndBadSpecs(t *testing.T) {
	s := NewScheduler()

	require.NoError(t, s.AddJob("0 0 10 * * *", &MockJob{name: "refresh"}))
	assert.ErrorContains(t, s.AddJob("0 0 17 * * *", &MockJob{name: "refresh"}), "already registered")

	// five fields are not enough when seconds are enabled
	assert.Error(t, s.AddJob("0 10 * * *", &MockJob{name: "other"}))
	assert.Error(t, s.RunJobNow("other"))
}

func TestRunJobNowReturnsJobError(t *testing.T) {
	s := NewScheduler()
	job := &MockJob{name: "failing", err: assert.AnError}
	require.NoError(t, s.AddJob("0 0 10 * * *", job))

	assert.ErrorIs(t, s.RunJobNow("failing"), assert.AnError)
	assert.EqualValues(t, 1, job.runCount.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	s := NewScheduler()
	s.Stop()
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
	assert.False(t, s.isRunning)
}
