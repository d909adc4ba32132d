package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Schedule is a time of day in UTC.
type Schedule struct {
	Hour   int
	Minute int
}

// ParseSchedule parses "HH:MM".
func ParseSchedule(value string) (Schedule, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return Schedule{}, fmt.Errorf("parse schedule %q: %w", value, err)
	}
	return Schedule{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (s Schedule) String() string {
	return fmt.Sprintf("%02d:%02d UTC", s.Hour, s.Minute)
}

// Next returns the first occurrence strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// StartDaily triggers the runner once a day until ctx is done. The returned channel is
// closed once the scheduler goroutine has exited.
func StartDaily(ctx context.Context, runner *Runner, schedule Schedule, log *logrus.Entry) <-chan struct{} {
	return startLoop(ctx, runner, func() time.Duration {
		return time.Until(schedule.Next(time.Now()))
	}, log.WithField("schedule", schedule.String()))
}

// startLoop triggers the runner every time the delay returned by next elapses.
func startLoop(ctx context.Context, runner *Runner, next func() time.Duration, log *logrus.Entry) <-chan struct{} {
	log.Infoln("Daily re-engagement scheduler started.")

	done := make(chan struct{})
	go func() {
		defer close(done)
		timer := time.NewTimer(next())
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Infoln("Daily re-engagement scheduler stopped.")
				return
			case <-timer.C:
			}

			log.Infoln("Scheduler tick: running re-engagement batch.")
			report, err := runner.Trigger(ctx)
			if err != nil {
				log.WithError(err).
					WithField("run_id", report.Id).
					WithField("processed", report.Processed).
					WithField("sent", report.Sent).
					Errorln("Scheduled re-engagement run failed.")
			} else {
				log.WithField("run_id", report.Id).
					WithField("processed", report.Processed).
					WithField("sent", report.Sent).
					Infoln("Scheduled re-engagement run finished.")
			}
			timer.Reset(next())
		}
	}()
	return done
}
