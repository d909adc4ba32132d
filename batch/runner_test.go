package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/reengageai/reengage"
	"github.com/reengageai/reengage/inmem"
	"github.com/reengageai/reengage/mock"
	"github.com/stretchr/testify/assert"
)

type failingCompletions struct{}

func (failingCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams,
	opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	return nil, errors.New("model unavailable")
}

func TestRunnerSavesReport(t *testing.T) {
	assert := assert.New(t)

	store := inmem.NewActivityStore()
	store.Put(reengage.MemberActivity{UserId: "u1", CompanyId: "C1", LastActiveAt: now.Add(-30 * day)})

	var saved []reengage.RunReport
	runs := &mock.RunStore{
		SaveFn: func(report reengage.RunReport) error {
			saved = append(saved, report)
			return nil
		},
		LastFn: func() (reengage.RunReport, error) {
			return saved[len(saved)-1], nil
		},
	}
	runner := &Runner{
		Job: &Job{Activities: store, Platform: memberPlatform(&sentLog{}),
			Composer: staticComposer("x"), Log: testLog()},
		Runs:          runs,
		ThresholdDays: 14,
		Now:           func() time.Time { return now },
	}

	report, err := runner.Trigger(context.Background())
	if !assert.NoError(err) {
		return
	}
	assert.Equal(1, report.Processed)
	assert.Equal(1, report.Sent)
	assert.Equal(14, report.ThresholdDays)
	assert.Equal(now, report.StartedAt)
	assert.NotEmpty(report.Id)

	if assert.Equal(1, len(saved)) {
		assert.Equal(report, saved[0])
	}
	last, err := runner.LastReport()
	assert.NoError(err)
	assert.Equal(report.Id, last.Id)
}

func TestRunnerSavesAbortedReport(t *testing.T) {
	assert := assert.New(t)

	var saved []reengage.RunReport
	runs := &mock.RunStore{SaveFn: func(report reengage.RunReport) error {
		saved = append(saved, report)
		return nil
	}}
	sent := &sentLog{}
	runner := &Runner{
		Job: &Job{Activities: failingSecondPage(), Platform: memberPlatform(sent),
			Composer: staticComposer("x"), Log: testLog(), PageSize: 2},
		Runs:          runs,
		ThresholdDays: 14,
		Now:           func() time.Time { return now },
	}

	report, err := runner.Trigger(context.Background())
	assert.ErrorIs(err, reengage.ErrDatabase)
	assert.NotEmpty(report.Id)
	assert.True(report.Aborted)
	assert.Contains(report.Error, "fetch candidates")
	assert.Equal(2, report.Processed)
	assert.Equal(2, report.Sent)
	assert.Equal(2, len(sent.notifications))

	if assert.Equal(1, len(saved)) {
		assert.Equal(report, saved[0])
	}
}

func TestRunnerReportById(t *testing.T) {
	assert := assert.New(t)

	runs := &mock.RunStore{ByIdFn: func(id string) (reengage.RunReport, error) {
		if id == "run_1" {
			return reengage.RunReport{Id: "run_1", Sent: 3}, nil
		}
		return reengage.RunReport{}, reengage.ErrRunNotFound
	}}
	runner := &Runner{Job: &Job{Log: testLog()}, Runs: runs}

	report, err := runner.Report("run_1")
	assert.NoError(err)
	assert.Equal(3, report.Sent)

	_, err = runner.Report("run_2")
	assert.ErrorIs(err, reengage.ErrRunNotFound)
}

func TestRunnerWithoutRunStore(t *testing.T) {
	runner := &Runner{Job: &Job{Activities: inmem.NewActivityStore(), Log: testLog()}, ThresholdDays: 14}

	_, err := runner.Trigger(context.Background())
	assert.NoError(t, err)

	_, err = runner.LastReport()
	assert.ErrorIs(t, err, reengage.ErrRunNotFound)

	_, err = runner.Report("run_1")
	assert.ErrorIs(t, err, reengage.ErrRunNotFound)
}

func TestRunnerCoalescesConcurrentTriggers(t *testing.T) {
	assert := assert.New(t)

	store := inmem.NewActivityStore()
	store.Put(reengage.MemberActivity{UserId: "u1", CompanyId: "C1", LastActiveAt: now.Add(-30 * day)})

	started := make(chan struct{})
	release := make(chan struct{})
	var sends int
	var mutex sync.Mutex
	platform := &mock.Platform{
		MemberFn: func(ctx context.Context, userId string, companyId string) (reengage.Member, error) {
			close(started)
			<-release
			return reengage.Member{UserId: userId}, nil
		},
		SendNotificationFn: func(ctx context.Context, notification reengage.Notification) error {
			mutex.Lock()
			defer mutex.Unlock()
			sends++
			return nil
		},
	}
	runner := &Runner{
		Job:           &Job{Activities: store, Platform: platform, Composer: staticComposer("x"), Log: testLog()},
		ThresholdDays: 14,
		Now:           func() time.Time { return now },
	}

	reports := make(chan reengage.RunReport, 2)
	trigger := func() {
		report, err := runner.Trigger(context.Background())
		assert.NoError(err)
		reports <- report
	}

	go trigger()
	<-started
	go trigger()
	// give the second trigger time to join the in-flight run
	time.Sleep(50 * time.Millisecond)
	close(release)

	first, second := <-reports, <-reports
	assert.Equal(first.Id, second.Id)
	assert.Equal(1, sends)
}

func TestRunnerIgnoresCallerCancellation(t *testing.T) {
	store := inmem.NewActivityStore()
	store.Put(reengage.MemberActivity{UserId: "u1", CompanyId: "C1", LastActiveAt: now.Add(-30 * day)})
	runner := &Runner{
		Job: &Job{Activities: store, Platform: memberPlatform(&sentLog{}),
			Composer: staticComposer("x"), Log: testLog()},
		ThresholdDays: 14,
		Now:           func() time.Time { return now },
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := runner.Trigger(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
}
