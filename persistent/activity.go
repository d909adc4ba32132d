package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reengageai/reengage"
	"github.com/uptrace/bun"
)

type MemberActivity struct {
	bun.BaseModel `bun:"table:member_activity"`

	UserId       string    `bun:",pk"`
	CompanyId    string    `bun:",pk"`
	LastActiveAt time.Time `bun:",notnull"`
	Status       string    `bun:",notnull,default:'active'"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

func (a *MemberActivity) ToDomain() reengage.MemberActivity {
	return reengage.MemberActivity{
		UserId:       a.UserId,
		CompanyId:    a.CompanyId,
		LastActiveAt: a.LastActiveAt.UTC(),
		Status:       reengage.Status(a.Status),
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}
}

type ActivityStore struct {
	DB *bun.DB
}

var _ reengage.ActivityStore = (*ActivityStore)(nil)

// Touch upserts the row. Concurrent touches of one key are last-write-wins.
func (s *ActivityStore) Touch(ctx context.Context, key reengage.Key, at time.Time) error {
	at = dbTime(at)
	_, err := s.DB.NewInsert().
		Model(&MemberActivity{
			UserId:       key.UserId,
			CompanyId:    key.CompanyId,
			LastActiveAt: at,
			Status:       string(reengage.StatusActive),
			CreatedAt:    at,
			UpdatedAt:    at,
		}).
		On(`CONFLICT (user_id, company_id) DO UPDATE SET last_active_at=EXCLUDED.last_active_at, ` +
			`status=EXCLUDED.status, updated_at=EXCLUDED.updated_at`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert member activity: %w", err)
	}
	return nil
}

func (s *ActivityStore) ByKey(ctx context.Context, key reengage.Key) (reengage.MemberActivity, error) {
	var row MemberActivity
	err := s.DB.NewSelect().
		Model(&row).
		Where("user_id = ?", key.UserId).
		Where("company_id = ?", key.CompanyId).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reengage.MemberActivity{}, reengage.ErrActivityNotFound
		}
		return reengage.MemberActivity{}, fmt.Errorf("select member activity: %w", err)
	}
	return row.ToDomain(), nil
}

func (s *ActivityStore) ByCompany(ctx context.Context, companyId string) ([]reengage.MemberActivity, error) {
	var rows []MemberActivity
	err := s.DB.NewSelect().
		Model(&rows).
		Where("company_id = ?", companyId).
		OrderExpr("user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select company activity: %w", err)
	}
	return toDomain(rows), nil
}

func (s *ActivityStore) InactiveSince(ctx context.Context, threshold time.Time,
	after reengage.Key, limit int) ([]reengage.MemberActivity, error) {
	if limit <= 0 {
		return []reengage.MemberActivity{}, nil
	}

	var rows []MemberActivity
	q := s.DB.NewSelect().
		Model(&rows).
		Where("last_active_at < ?", dbTime(threshold)).
		Where("status != ?", string(reengage.StatusReEngaged))
	if !after.IsZero() {
		q = q.Where("(company_id > ?) OR (company_id = ? AND user_id > ?)",
			after.CompanyId, after.CompanyId, after.UserId)
	}
	err := q.OrderExpr("company_id ASC, user_id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select inactive activity: %w", err)
	}
	return toDomain(rows), nil
}

func (s *ActivityStore) UpdateStatus(ctx context.Context, key reengage.Key, status reengage.Status, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", reengage.ErrInvalidStatus, status)
	}
	result, err := s.DB.NewUpdate().
		Model((*MemberActivity)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = ?", dbTime(at)).
		Where("user_id = ?", key.UserId).
		Where("company_id = ?", key.CompanyId).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update member status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return reengage.ErrActivityNotFound
	}
	return nil
}

func toDomain(rows []MemberActivity) []reengage.MemberActivity {
	result := make([]reengage.MemberActivity, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result
}

// dbTime drops the precision postgres does not store so round trips compare equal.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
