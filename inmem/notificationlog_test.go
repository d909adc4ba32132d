package inmem

import (
	"context"
	"testing"

	"github.com/reengageai/reengage"
	"github.com/stretchr/testify/assert"
)

func TestNotificationLogStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewNotificationLogStore()
	{
		logs, err := s.ByCompany(ctx, "biz_1", -1, 100)
		if assert.NoError(err) {
			assert.Equal(0, len(logs))
		}
	}

	assert.NoError(s.AddLog(ctx, reengage.NotificationLog{CompanyId: "biz_1", UserId: "u1", Title: "first"}))
	assert.NoError(s.AddLog(ctx, reengage.NotificationLog{CompanyId: "biz_1", UserId: "u2", Title: "second"}))
	assert.NoError(s.AddLog(ctx, reengage.NotificationLog{CompanyId: "biz_2", UserId: "u3", Title: "other"}))

	logs, err := s.ByCompany(ctx, "biz_1", -1, 100)
	if !assert.NoError(err) || !assert.Equal(2, len(logs)) {
		return
	}
	assert.Equal("second", logs[0].Title)
	assert.Equal("first", logs[1].Title)
	assert.False(logs[0].CreatedAt.IsZero())

	logs, err = s.ByCompany(ctx, "biz_1", logs[0].Id, 100)
	if assert.NoError(err) && assert.Equal(1, len(logs)) {
		assert.Equal("first", logs[0].Title)
	}

	logs, err = s.ByCompany(ctx, "biz_1", -1, 1)
	if assert.NoError(err) {
		assert.Equal(1, len(logs))
	}

	logs, err = s.ByCompany(ctx, "biz_1", -1, -5)
	if assert.NoError(err) {
		assert.Equal(0, len(logs))
	}
}
