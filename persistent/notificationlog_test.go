package persistent

import (
	"context"
	"math"
	"testing"

	"github.com/reengageai/reengage"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
)

func TestNotificationLogStore(t *testing.T) {
	withDatabases(t, func(t *testing.T, db *bun.DB) {
		assert := assert.New(t)
		ctx := context.Background()
		store := &NotificationLogStore{DB: db}

		assert.NoError(store.AddLog(ctx, reengage.NotificationLog{RunId: "run_1", UserId: "u1",
			CompanyId: "biz_1", Title: "Hey u1", Content: "first"}))
		assert.NoError(store.AddLog(ctx, reengage.NotificationLog{RunId: "run_1", UserId: "u2",
			CompanyId: "biz_1", Title: "Hey u2", Content: "second"}))
		assert.NoError(store.AddLog(ctx, reengage.NotificationLog{RunId: "run_1", UserId: "u3",
			CompanyId: "biz_2", Title: "Hey u3", Content: "other"}))

		logs, err := store.ByCompany(ctx, "biz_1", -1, 100)
		if !assert.NoError(err) || !assert.Equal(2, len(logs)) {
			return
		}
		assert.Equal("second", logs[0].Content)
		assert.Equal("first", logs[1].Content)
		assert.Equal("run_1", logs[0].RunId)
		assert.False(logs[0].CreatedAt.IsZero())
		oldest := logs[1]

		logs, err = store.ByCompany(ctx, "biz_1", oldest.Id, 100)
		assert.NoError(err)
		assert.Equal(0, len(logs))

		logs, err = store.ByCompany(ctx, "biz_1", oldest.Id+1, 100)
		assert.NoError(err)
		assert.Equal(1, len(logs))

		logs, err = store.ByCompany(ctx, "biz_1", math.MaxInt64, 1)
		assert.NoError(err)
		assert.Equal(1, len(logs))

		logs, err = store.ByCompany(ctx, "biz_1", -1, -5)
		assert.NoError(err)
		assert.Equal(0, len(logs))
	})
}
