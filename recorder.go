package reengage

import (
	"context"
	"fmt"
	"time"
)

// Recorder stores activity beacons. The caller is responsible for authenticating userId.
type Recorder struct {
	Store ActivityStore
	Now   func() time.Time
}

func (r *Recorder) Record(ctx context.Context, userId string, companyId string) error {
	if userId == "" {
		return fmt.Errorf("user id: %w", ErrMissingField)
	}
	if companyId == "" {
		return fmt.Errorf("company id: %w", ErrMissingField)
	}

	now := time.Now().UTC()
	if r.Now != nil {
		now = r.Now()
	}
	err := r.Store.Touch(ctx, Key{UserId: userId, CompanyId: companyId}, now)
	if err != nil {
		return fmt.Errorf("touch activity: %w: %w", ErrDatabase, err)
	}
	return nil
}
