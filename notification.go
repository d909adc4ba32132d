package reengage

import (
	"context"
	"time"
)

// NotificationLog is one re-engagement message delivered by a batch run.
type NotificationLog struct {
	Id        int64
	CreatedAt time.Time
	RunId     string
	UserId    string
	CompanyId string
	Title     string
	Content   string
}

type NotificationLogStore interface {
	AddLog(ctx context.Context, entry NotificationLog) error

	// "beforeId" - get logs before log with given id. If lower than 0 then gets recent logs up to "limit".
	ByCompany(ctx context.Context, companyId string, beforeId int64, limit int) ([]NotificationLog, error)
}
