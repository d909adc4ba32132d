package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/reengageai/reengage"
)

type ActivityStore struct {
	rows  map[reengage.Key]reengage.MemberActivity
	mutex sync.RWMutex
}

var _ reengage.ActivityStore = (*ActivityStore)(nil)

func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		rows: make(map[reengage.Key]reengage.MemberActivity),
	}
}

// Put stores the row as is, overwriting any existing row with the same key.
func (s *ActivityStore) Put(rows ...reengage.MemberActivity) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, row := range rows {
		s.rows[row.Key()] = row
	}
}

func (s *ActivityStore) Touch(ctx context.Context, key reengage.Key, at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	row, ok := s.rows[key]
	if !ok {
		row = reengage.MemberActivity{UserId: key.UserId, CompanyId: key.CompanyId, CreatedAt: at}
	}
	row.LastActiveAt = at
	row.Status = reengage.StatusActive
	row.UpdatedAt = at
	s.rows[key] = row
	return nil
}

func (s *ActivityStore) ByKey(ctx context.Context, key reengage.Key) (reengage.MemberActivity, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	row, ok := s.rows[key]
	if !ok {
		return reengage.MemberActivity{}, reengage.ErrActivityNotFound
	}
	return row, nil
}

func (s *ActivityStore) ByCompany(ctx context.Context, companyId string) ([]reengage.MemberActivity, error) {
	return s.filter(func(row reengage.MemberActivity) bool {
		return row.CompanyId == companyId
	}), nil
}

// All returns every row ordered by key.
func (s *ActivityStore) All(ctx context.Context) ([]reengage.MemberActivity, error) {
	return s.filter(func(reengage.MemberActivity) bool { return true }), nil
}

func (s *ActivityStore) InactiveSince(ctx context.Context, threshold time.Time,
	after reengage.Key, limit int) ([]reengage.MemberActivity, error) {
	if limit <= 0 {
		return []reengage.MemberActivity{}, nil
	}
	rows := s.filter(func(row reengage.MemberActivity) bool {
		if !after.IsZero() && !after.Less(row.Key()) {
			return false
		}
		return reengage.IsAtRiskCandidate(row, threshold)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *ActivityStore) UpdateStatus(ctx context.Context, key reengage.Key, status reengage.Status, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", reengage.ErrInvalidStatus, status)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	row, ok := s.rows[key]
	if !ok {
		return reengage.ErrActivityNotFound
	}
	row.Status = status
	row.UpdatedAt = at
	s.rows[key] = row
	return nil
}

// filter returns matching rows ordered by key.
func (s *ActivityStore) filter(match func(row reengage.MemberActivity) bool) []reengage.MemberActivity {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows := make([]reengage.MemberActivity, 0, len(s.rows))
	for _, row := range s.rows {
		if match(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Key().Less(rows[j].Key())
	})
	return rows
}
