// Package batch runs a unit of work over a list of items in fixed-size
// chunks. Items inside a chunk run concurrently, chunks run one after another
// with an optional pause between them. Every item produces exactly one
// Result; a failing item never affects its siblings and nothing is retried.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the outcome tag of a single item.
type Status int

const (
	StatusSucceeded Status = iota
	StatusSkipped
	StatusFailed
)

// String returns the lowercase label used in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReasonCanceled is the failure reason for items never started because the
// context was canceled.
const ReasonCanceled = "canceled"

// Result is the outcome of one item. Value is set only when Status is
// StatusSucceeded; Reason is set for skipped and failed items.
type Result[R any] struct {
	Index    int
	Key      string
	Status   Status
	Value    R
	Reason   string
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the item succeeded.
func (r Result[R]) Succeeded() bool { return r.Status == StatusSucceeded }

// SkipError marks an item as intentionally not processed.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skip returns an error that makes Run record the item as skipped.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// FailureError carries an explicit machine-readable failure reason.
type FailureError struct {
	Reason string
	Err    error
}

func (e *FailureError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *FailureError) Unwrap() error { return e.Err }

// Fail returns an error that makes Run record the item as failed with the
// given reason instead of err.Error().
func Fail(reason string, err error) error {
	return &FailureError{Reason: reason, Err: err}
}

// Recorder observes every item outcome.
type Recorder interface {
	ObserveItem(batch string, status Status, d time.Duration)
}

// Config controls chunking.
type Config struct {
	// Name identifies the batch in logs and metrics.
	Name string
	// Concurrency is the chunk size. Values below 1 are treated as 1.
	Concurrency int
	// Delay is the pause between consecutive chunks.
	Delay time.Duration

	Logger   *slog.Logger
	Recorder Recorder
}

// Report aggregates the outcome of a Run.
type Report[R any] struct {
	Name      string
	Results   []Result[R]
	Succeeded int
	Skipped   int
	Failed    int
	Started   time.Time
	Duration  time.Duration
}

// Total returns the number of items processed.
func (r *Report[R]) Total() int { return len(r.Results) }

// Failures returns the failed results in input order.
func (r *Report[R]) Failures() []Result[R] {
	var out []Result[R]
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// Values returns the values of succeeded results in input order.
func (r *Report[R]) Values() []R {
	out := make([]R, 0, r.Succeeded)
	for _, res := range r.Results {
		if res.Status == StatusSucceeded {
			out = append(out, res.Value)
		}
	}
	return out
}

// Run applies fn to every item. Results are returned in input order.
// Run never returns an error: per-item failures, panics and cancellation are
// all reported as failed results.
func Run[T, R any](
	ctx context.Context,
	items []T,
	cfg Config,
	key func(T) string,
	fn func(ctx context.Context, item T) (R, error),
) *Report[R] {
	size := cfg.Concurrency
	if size < 1 {
		size = 1
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	report := &Report[R]{
		Name:    cfg.Name,
		Results: make([]Result[R], len(items)),
		Started: time.Now(),
	}
	for i, item := range items {
		report.Results[i].Index = i
		if key != nil {
			report.Results[i].Key = key(item)
		}
	}

	chunks := (len(items) + size - 1) / size
	for c := 0; c < chunks; c++ {
		start := c * size
		end := min(start+size, len(items))

		if err := ctx.Err(); err != nil {
			cancelRemaining(report.Results[start:], err)
			break
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				runOne(ctx, items[i], &report.Results[i], fn)
				return nil
			})
		}
		_ = g.Wait()

		if cfg.Delay > 0 && c < chunks-1 {
			log.Debug("batch chunk done, pausing",
				"batch", cfg.Name,
				"chunk", c+1,
				"chunks", chunks,
				"delay", cfg.Delay,
			)
			if !sleep(ctx, cfg.Delay) {
				cancelRemaining(report.Results[end:], ctx.Err())
				break
			}
		}
	}

	for _, res := range report.Results {
		switch res.Status {
		case StatusSucceeded:
			report.Succeeded++
		case StatusSkipped:
			report.Skipped++
		case StatusFailed:
			report.Failed++
		}
		if cfg.Recorder != nil {
			cfg.Recorder.ObserveItem(cfg.Name, res.Status, res.Duration)
		}
	}
	report.Duration = time.Since(report.Started)

	log.Info("batch completed",
		"batch", cfg.Name,
		"total", len(items),
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration,
	)

	return report
}

func runOne[T, R any](ctx context.Context, item T, res *Result[R], fn func(context.Context, T) (R, error)) {
	started := time.Now()
	defer func() {
		res.Duration = time.Since(started)
		if p := recover(); p != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("panic: %v", p)
			res.Reason = res.Err.Error()
		}
	}()

	value, err := fn(ctx, item)
	if err == nil {
		res.Status = StatusSucceeded
		res.Value = value
		return
	}

	var skip *SkipError
	if errors.As(err, &skip) {
		res.Status = StatusSkipped
		res.Reason = skip.Reason
		return
	}

	res.Status = StatusFailed
	res.Err = err
	var failure *FailureError
	if errors.As(err, &failure) {
		res.Reason = failure.Reason
	} else {
		res.Reason = err.Error()
	}
}

func cancelRemaining[R any](results []Result[R], cause error) {
	for i := range results {
		results[i].Status = StatusFailed
		results[i].Reason = ReasonCanceled
		results[i].Err = cause
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
