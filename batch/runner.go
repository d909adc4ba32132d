package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reengageai/reengage"
	"golang.org/x/sync/singleflight"
)

// Runner triggers the job on demand. Triggers arriving while a run is in progress
// share its report instead of starting another run.
type Runner struct {
	Job           *Job
	Runs          reengage.RunStore
	ThresholdDays int
	Now           func() time.Time

	group singleflight.Group
}

// Trigger runs the job. Aborted runs return their partial report together with the error.
func (r *Runner) Trigger(ctx context.Context) (reengage.RunReport, error) {
	// run survives the caller going away, other triggers may be waiting for it
	ctx = context.WithoutCancel(ctx)
	v, err, _ := r.group.Do("run", func() (interface{}, error) {
		return r.run(ctx)
	})
	report, _ := v.(reengage.RunReport)
	return report, err
}

func (r *Runner) run(ctx context.Context) (reengage.RunReport, error) {
	startedAt := r.now()
	runId := uuid.New().String()

	result, err := r.Job.run(ctx, runId, startedAt, r.ThresholdDays)

	report := reengage.RunReport{
		Id:            runId,
		StartedAt:     startedAt,
		CompletedAt:   result.CompletedAt,
		ThresholdDays: r.ThresholdDays,
		Processed:     result.Processed,
		Sent:          result.Sent,
		Skipped:       result.Skipped,
		Failed:        result.Failed,
	}
	if err != nil {
		report.Aborted = true
		report.Error = err.Error()
	}
	if r.Runs != nil {
		if err := r.Runs.Save(report); err != nil {
			r.Job.logger().WithError(err).WithField("run_id", runId).Errorln("Could not save run report.")
		}
	}
	return report, err
}

// Report returns a stored report by run id.
func (r *Runner) Report(id string) (reengage.RunReport, error) {
	if r.Runs == nil {
		return reengage.RunReport{}, reengage.ErrRunNotFound
	}
	report, err := r.Runs.ById(id)
	if err != nil {
		return reengage.RunReport{}, fmt.Errorf("run %s: %w", id, err)
	}
	return report, nil
}

// LastReport returns the most recent stored report.
func (r *Runner) LastReport() (reengage.RunReport, error) {
	if r.Runs == nil {
		return reengage.RunReport{}, reengage.ErrRunNotFound
	}
	report, err := r.Runs.Last()
	if err != nil {
		return reengage.RunReport{}, fmt.Errorf("last run: %w", err)
	}
	return report, nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
