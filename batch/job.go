package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reengageai/reengage"
	"github.com/reengageai/reengage/metrics"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPageSize         = 500
	DefaultCandidateTimeout = time.Minute

	NotificationTopic = "reengage"
)

// Job finds inactive members and sends each of them a re-engagement notification.
type Job struct {
	Activities reengage.ActivityStore
	Platform   reengage.Platform
	Composer   reengage.Composer

	// Optional. Used to pass the community name to the composer.
	Companies reengage.Directory
	// Optional. Every delivered notification is appended here.
	Logs reengage.NotificationLogStore

	Metrics *metrics.Collectors
	Log     *logrus.Entry

	PageSize         int
	CandidateTimeout time.Duration
}

type Result struct {
	RunId       string
	Processed   int
	Sent        int
	Skipped     int
	Failed      int
	CompletedAt time.Time
}

// Title is the notification title sent to the member.
func Title(member reengage.Member) string {
	return "Hey " + member.DisplayName() + ", we miss you! 💙"
}

// Run processes every candidate once. Failures of single candidates are logged and
// counted, only a failure to read candidates from the store aborts the run. An aborted
// run returns its partial result together with the error.
func (j *Job) Run(ctx context.Context, now time.Time, thresholdDays int) (Result, error) {
	return j.run(ctx, uuid.New().String(), now, thresholdDays)
}

func (j *Job) run(ctx context.Context, runId string, now time.Time, thresholdDays int) (Result, error) {
	threshold := reengage.Threshold(now, thresholdDays)
	log := j.logger().WithField("run_id", runId)
	log.WithField("threshold_days", thresholdDays).
		WithField("threshold", threshold.Format(time.RFC3339)).
		Infoln("Starting re-engagement run.")

	result := Result{RunId: runId}
	run := &runState{
		job:         j,
		runId:       runId,
		now:         now,
		log:         log,
		result:      &result,
		seen:        make(map[reengage.Key]struct{}),
		communities: make(map[string]string),
	}

	pageSize := j.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var after reengage.Key
	for {
		if err := ctx.Err(); err != nil {
			return j.abort(log, result, fmt.Errorf("run interrupted: %w", err))
		}

		page, err := j.Activities.InactiveSince(ctx, threshold, after, pageSize)
		if err != nil {
			return j.abort(log, result, fmt.Errorf("fetch candidates: %w: %w", reengage.ErrDatabase, err))
		}
		for _, activity := range page {
			if !reengage.IsAtRiskCandidate(activity, threshold) {
				continue
			}
			if _, ok := run.seen[activity.Key()]; ok {
				continue
			}
			run.seen[activity.Key()] = struct{}{}
			run.process(ctx, activity)
		}
		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].Key()
	}

	result.CompletedAt = time.Now().UTC()
	j.Metrics.RunCompleted()
	log.WithField("processed", result.Processed).
		WithField("sent", result.Sent).
		WithField("skipped", result.Skipped).
		WithField("failed", result.Failed).
		Infoln("Re-engagement run completed.")
	return result, nil
}

// abort finishes a run that stopped early. Candidates handled so far stay counted.
func (j *Job) abort(log *logrus.Entry, result Result, err error) (Result, error) {
	result.CompletedAt = time.Now().UTC()
	j.Metrics.RunAborted()
	log.WithError(err).
		WithField("processed", result.Processed).
		WithField("sent", result.Sent).
		WithField("skipped", result.Skipped).
		WithField("failed", result.Failed).
		Errorln("Re-engagement run aborted.")
	return result, err
}

func (j *Job) logger() *logrus.Entry {
	if j.Log != nil {
		return j.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

type runState struct {
	job         *Job
	runId       string
	now         time.Time
	log         *logrus.Entry
	result      *Result
	seen        map[reengage.Key]struct{}
	communities map[string]string
}

func (r *runState) process(ctx context.Context, activity reengage.MemberActivity) {
	r.result.Processed++
	r.job.Metrics.Candidate()

	log := r.log.WithField("user_id", activity.UserId).
		WithField("company_id", activity.CompanyId)

	timeout := r.job.CandidateTimeout
	if timeout <= 0 {
		timeout = DefaultCandidateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	member, err := r.job.Platform.Member(ctx, activity.UserId, activity.CompanyId)
	if err != nil {
		if errors.Is(err, reengage.ErrMemberNotFound) {
			log.Infoln("Member not found, skipping.")
			r.result.Skipped++
			r.job.Metrics.Skipped()
			return
		}
		log.WithError(err).Errorln("Could not fetch member.")
		r.fail(metrics.ReasonMemberLookup)
		return
	}

	content := r.job.Composer.Compose(ctx, member, r.communityName(ctx, activity.CompanyId))
	notification := reengage.Notification{
		Title:        Title(member),
		Content:      content,
		Topic:        NotificationTopic,
		CompanyId:    activity.CompanyId,
		RecipientIds: []string{member.UserId},
	}
	err = r.job.Platform.SendNotification(ctx, notification)
	if err != nil {
		log.WithError(err).Errorln("Could not send notification.")
		r.fail(metrics.ReasonNotification)
		return
	}

	err = r.job.Activities.UpdateStatus(ctx, activity.Key(), reengage.StatusAtRisk, r.now)
	if err != nil {
		log.WithError(err).Errorln("Could not mark member at risk.")
		r.fail(metrics.ReasonStatusUpdate)
		return
	}

	r.result.Sent++
	r.job.Metrics.Sent()
	log.Infoln("Sent re-engagement notification.")

	if r.job.Logs != nil {
		err = r.job.Logs.AddLog(ctx, reengage.NotificationLog{
			CreatedAt: r.now,
			RunId:     r.runId,
			UserId:    activity.UserId,
			CompanyId: activity.CompanyId,
			Title:     notification.Title,
			Content:   notification.Content,
		})
		if err != nil {
			log.WithError(err).Warningln("Could not append notification log.")
		}
	}
}

func (r *runState) fail(reason string) {
	r.result.Failed++
	r.job.Metrics.CandidateFailed(reason)
}

// communityName resolves the company title once per run. Lookup errors leave the name empty for the whole run.
func (r *runState) communityName(ctx context.Context, companyId string) string {
	if r.job.Companies == nil {
		return ""
	}
	if name, ok := r.communities[companyId]; ok {
		return name
	}
	company, err := r.job.Companies.Company(ctx, companyId)
	if err != nil {
		r.log.WithError(err).WithField("company_id", companyId).Debugln("Could not fetch company.")
		r.communities[companyId] = ""
		return ""
	}
	r.communities[companyId] = company.Title
	return company.Title
}
