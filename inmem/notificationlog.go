package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/reengageai/reengage"
)

type NotificationLogStore struct {
	lastId int64
	logs   map[string][]reengage.NotificationLog
	mutex  sync.RWMutex
}

var _ reengage.NotificationLogStore = (*NotificationLogStore)(nil)

func NewNotificationLogStore() *NotificationLogStore {
	return &NotificationLogStore{
		logs: make(map[string][]reengage.NotificationLog),
	}
}

func (s *NotificationLogStore) AddLog(ctx context.Context, entry reengage.NotificationLog) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastId++
	entry.Id = s.lastId
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.logs[entry.CompanyId] = append(s.logs[entry.CompanyId], entry)
	return nil
}

func (s *NotificationLogStore) ByCompany(ctx context.Context, companyId string,
	beforeId int64, limit int) ([]reengage.NotificationLog, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	logs := make([]reengage.NotificationLog, 0)
	clogs := s.logs[companyId]
	// newest first
	for i := len(clogs) - 1; i >= 0 && len(logs) < limit; i-- {
		if beforeId >= 0 && clogs[i].Id >= beforeId {
			continue
		}
		logs = append(logs, clogs[i])
	}
	return logs, nil
}
