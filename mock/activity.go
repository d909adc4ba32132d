package mock

import (
	"context"
	"time"

	"github.com/reengageai/reengage"
)

type ActivityStore struct {
	TouchFn func(ctx context.Context, key reengage.Key, at time.Time) error

	ByKeyFn func(ctx context.Context, key reengage.Key) (reengage.MemberActivity, error)

	ByCompanyFn func(ctx context.Context, companyId string) ([]reengage.MemberActivity, error)

	InactiveSinceFn func(ctx context.Context, threshold time.Time,
		after reengage.Key, limit int) ([]reengage.MemberActivity, error)

	UpdateStatusFn func(ctx context.Context, key reengage.Key, status reengage.Status, at time.Time) error
}

func (s *ActivityStore) Touch(ctx context.Context, key reengage.Key, at time.Time) error {
	return s.TouchFn(ctx, key, at)
}

func (s *ActivityStore) ByKey(ctx context.Context, key reengage.Key) (reengage.MemberActivity, error) {
	return s.ByKeyFn(ctx, key)
}

func (s *ActivityStore) ByCompany(ctx context.Context, companyId string) ([]reengage.MemberActivity, error) {
	return s.ByCompanyFn(ctx, companyId)
}

func (s *ActivityStore) InactiveSince(ctx context.Context, threshold time.Time,
	after reengage.Key, limit int) ([]reengage.MemberActivity, error) {
	return s.InactiveSinceFn(ctx, threshold, after, limit)
}

func (s *ActivityStore) UpdateStatus(ctx context.Context, key reengage.Key, status reengage.Status, at time.Time) error {
	return s.UpdateStatusFn(ctx, key, status, at)
}
