package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule defines when a job should run.
type Schedule interface {
	// Next returns the next run time strictly after t.
	Next(t time.Time) time.Time

	// String returns a human-readable representation of the schedule.
	String() string
}

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates an IntervalSchedule.
func Every(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s *IntervalSchedule) String() string {
	return "@every " + s.Interval.String()
}

// DailySchedule runs a job once per UTC day at a fixed wall-clock time.
type DailySchedule struct {
	Hour   int
	Minute int
}

// DailyAt creates a DailySchedule. hour and minute are UTC.
func DailyAt(hour, minute int) (*DailySchedule, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("invalid daily time %02d:%02d", hour, minute)
	}
	return &DailySchedule{Hour: hour, Minute: minute}, nil
}

// Next returns today's run time if it is still ahead of t, tomorrow's otherwise.
func (s *DailySchedule) Next(t time.Time) time.Time {
	u := t.UTC()
	next := time.Date(u.Year(), u.Month(), u.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
	if !next.After(u) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *DailySchedule) String() string {
	return fmt.Sprintf("@daily %02d:%02d", s.Hour, s.Minute)
}

// ParseSchedule parses "@every <duration>" or "@daily HH:MM".
func ParseSchedule(expr string) (Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 2 {
		return nil, fmt.Errorf("invalid schedule %q: expected \"@every <duration>\" or \"@daily HH:MM\"", expr)
	}

	switch fields[0] {
	case "@every":
		d, err := time.ParseDuration(fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", fields[1], err)
		}
		if d < time.Minute {
			return nil, fmt.Errorf("interval %s is shorter than one minute", d)
		}
		return Every(d), nil

	case "@daily":
		hh, mm, ok := strings.Cut(fields[1], ":")
		if !ok {
			return nil, fmt.Errorf("invalid daily time %q", fields[1])
		}
		hour, err := strconv.Atoi(hh)
		if err != nil {
			return nil, fmt.Errorf("invalid hour %q", hh)
		}
		minute, err := strconv.Atoi(mm)
		if err != nil {
			return nil, fmt.Errorf("invalid minute %q", mm)
		}
		return DailyAt(hour, minute)
	}

	return nil, fmt.Errorf("unknown schedule kind %q", fields[0])
}
