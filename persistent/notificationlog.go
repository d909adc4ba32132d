package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/reengageai/reengage"
	"github.com/uptrace/bun"
)

type NotificationLog struct {
	bun.BaseModel `bun:"table:notification_log"`

	Id        int64     `bun:",pk,autoincrement"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	RunId     string    `bun:",notnull"`
	UserId    string    `bun:",notnull"`
	CompanyId string    `bun:",notnull"`
	Title     string    `bun:",notnull"`
	Content   string    `bun:",notnull"`
}

func (l *NotificationLog) ToDomain() reengage.NotificationLog {
	return reengage.NotificationLog{
		Id:        l.Id,
		CreatedAt: l.CreatedAt.UTC(),
		RunId:     l.RunId,
		UserId:    l.UserId,
		CompanyId: l.CompanyId,
		Title:     l.Title,
		Content:   l.Content,
	}
}

type NotificationLogStore struct {
	DB *bun.DB
}

var _ reengage.NotificationLogStore = (*NotificationLogStore)(nil)

func (s *NotificationLogStore) AddLog(ctx context.Context, entry reengage.NotificationLog) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.DB.NewInsert().
		Model(&NotificationLog{
			CreatedAt: dbTime(createdAt),
			RunId:     entry.RunId,
			UserId:    entry.UserId,
			CompanyId: entry.CompanyId,
			Title:     entry.Title,
			Content:   entry.Content,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

func (s *NotificationLogStore) ByCompany(ctx context.Context, companyId string,
	beforeId int64, limit int) ([]reengage.NotificationLog, error) {
	if limit <= 0 {
		return []reengage.NotificationLog{}, nil
	}

	var logs []NotificationLog
	q := s.DB.NewSelect().
		Model(&logs).
		Where("company_id = ?", companyId)
	if beforeId >= 0 {
		q = q.Where("id < ?", beforeId)
	}
	err := q.OrderExpr("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select notification logs: %w", err)
	}

	result := make([]reengage.NotificationLog, len(logs))
	for i := range logs {
		result[i] = logs[i].ToDomain()
	}
	return result, nil
}
