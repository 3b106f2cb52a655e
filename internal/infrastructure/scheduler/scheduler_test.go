package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeclub/leetboard/pkg/logger"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

type recordingObserver struct {
	calls atomic.Int32
	fails atomic.Int32
}

func (o *recordingObserver) ObserveJob(_ string, err error, _ time.Duration) {
	o.calls.Add(1)
	if err != nil {
		o.fails.Add(1)
	}
}

func newTestScheduler(obs Observer) *Scheduler {
	return NewScheduler(SchedulerConfig{
		Logger:       logger.Discard(),
		Observer:     obs,
		TickInterval: 5 * time.Millisecond,
	})
}

func TestRegister_Validation(t *testing.T) {
	s := newTestScheduler(nil)
	job := &countingJob{name: "a"}

	assert.ErrorIs(t, s.Register(nil, Every(time.Hour), false), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil, false), ErrNilSchedule)
	require.NoError(t, s.Register(job, Every(time.Hour), false))
	assert.ErrorIs(t, s.Register(job, Every(time.Hour), false), ErrJobAlreadyExists)
}

func TestScheduler_RunNowOnStart(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestScheduler(obs)
	job := &countingJob{name: "daily_refresh"}
	require.NoError(t, s.Register(job, Every(time.Hour), true))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	assert.EqualValues(t, 1, job.runs.Load(), "hourly job must not run twice")
	assert.EqualValues(t, 1, obs.calls.Load())

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.EqualValues(t, 1, infos[0].RunCount)
	assert.NotNil(t, infos[0].LastRun)
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := newTestScheduler(nil)
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, Every(time.Millisecond), true))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, job.runs.Load())

	_, err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrJobRunning)

	close(job.block)
	require.NoError(t, s.Stop())
}

func TestScheduler_StartStopErrors(t *testing.T) {
	s := newTestScheduler(nil)
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

func TestRunNow(t *testing.T) {
	obs := &recordingObserver{}
	s := newTestScheduler(obs)
	boom := errors.New("boom")
	require.NoError(t, s.Register(&countingJob{name: "failing", err: boom}, Every(time.Hour), false))

	res, err := s.RunNow(context.Background(), "failing")
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.True(t, res.Manual)
	assert.False(t, res.Success())
	assert.EqualValues(t, 1, obs.fails.Load())
	assert.Equal(t, "boom", s.ListJobs()[0].LastError)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

type panickingJob struct{}

func (panickingJob) Name() string              { return "panics" }
func (panickingJob) Description() string       { return "" }
func (panickingJob) Run(context.Context) error { panic("nil pointer") }

func TestRunNow_RecoversPanic(t *testing.T) {
	s := newTestScheduler(nil)
	require.NoError(t, s.Register(panickingJob{}, Every(time.Hour), false))

	_, err := s.RunNow(context.Background(), "panics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil pointer")
}
