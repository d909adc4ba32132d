package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/reengageai/reengage"
	"github.com/reengageai/reengage/inmem"
	"github.com/reengageai/reengage/mock"
	"github.com/stretchr/testify/assert"
)

func TestParseSchedule(t *testing.T) {
	assert := assert.New(t)

	s, err := ParseSchedule("09:30")
	assert.NoError(err)
	assert.Equal(Schedule{Hour: 9, Minute: 30}, s)
	assert.Equal("09:30 UTC", s.String())

	for _, invalid := range []string{"", "9", "25:00", "10:61", "noon"} {
		_, err := ParseSchedule(invalid)
		assert.Error(err, invalid)
	}
}

func TestScheduleNext(t *testing.T) {
	assert := assert.New(t)
	s := Schedule{Hour: 9, Minute: 0}

	before := time.Date(2024, 6, 1, 8, 59, 0, 0, time.UTC)
	assert.Equal(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), s.Next(before))

	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC), s.Next(at))

	local := time.Date(2024, 12, 31, 23, 0, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), s.Next(local))
}

func TestStartDailyStopsWithContext(t *testing.T) {
	runner := &Runner{Job: &Job{Activities: inmem.NewActivityStore(), Log: testLog()}, ThresholdDays: 14}

	ctx, cancel := context.WithCancel(context.Background())
	done := StartDaily(ctx, runner, Schedule{Hour: 3, Minute: 0}, testLog())
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerLoopTriggersRuns(t *testing.T) {
	assert := assert.New(t)

	store := inmem.NewActivityStore()
	store.Put(reengage.MemberActivity{UserId: "u1", CompanyId: "C1", LastActiveAt: now.Add(-30 * day)})

	var mutex sync.Mutex
	var saved []reengage.RunReport
	runs := &mock.RunStore{SaveFn: func(report reengage.RunReport) error {
		mutex.Lock()
		defer mutex.Unlock()
		saved = append(saved, report)
		return nil
	}}
	runner := &Runner{
		Job: &Job{Activities: store, Platform: memberPlatform(&sentLog{}),
			Composer: staticComposer("x"), Log: testLog()},
		Runs:          runs,
		ThresholdDays: 14,
		Now:           func() time.Time { return now },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startLoop(ctx, runner, func() time.Duration { return 5 * time.Millisecond }, testLog())

	assert.Eventually(func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(saved) >= 2
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
