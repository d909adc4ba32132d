package reengage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingField     = errors.New("missing required field")
	ErrDatabase         = errors.New("database error")
	ErrActivityNotFound = errors.New("member activity not found")
	ErrInvalidStatus    = errors.New("invalid member status")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusAtRisk    Status = "at_risk"
	StatusReEngaged Status = "re_engaged"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusAtRisk, StatusReEngaged:
		return true
	default:
		return false
	}
}

// Key identifies a single member inside a single community.
type Key struct {
	UserId    string
	CompanyId string
}

func (k Key) IsZero() bool {
	return k.UserId == "" && k.CompanyId == ""
}

// Less orders keys by company first, then by user. Paged store queries use the same order.
func (k Key) Less(o Key) bool {
	if k.CompanyId != o.CompanyId {
		return k.CompanyId < o.CompanyId
	}
	return k.UserId < o.UserId
}

type MemberActivity struct {
	UserId       string
	CompanyId    string
	LastActiveAt time.Time
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a MemberActivity) Key() Key {
	return Key{UserId: a.UserId, CompanyId: a.CompanyId}
}

type ActivityStore interface {
	// Upsert row for key with last_active_at=at, status=active, updated_at=at.
	Touch(ctx context.Context, key Key, at time.Time) error

	ByKey(ctx context.Context, key Key) (MemberActivity, error)

	ByCompany(ctx context.Context, companyId string) ([]MemberActivity, error)

	// Rows with last_active_at < threshold and status != re_engaged, ordered by
	// (company_id, user_id) and starting strictly after "after". Zero key starts at the beginning.
	InactiveSince(ctx context.Context, threshold time.Time, after Key, limit int) ([]MemberActivity, error)

	// Returns ErrInvalidStatus for statuses outside the enum.
	UpdateStatus(ctx context.Context, key Key, status Status, at time.Time) error
}

// Threshold returns the instant before which a member counts as inactive.
func Threshold(now time.Time, thresholdDays int) time.Time {
	return now.Add(-time.Duration(thresholdDays) * 24 * time.Hour)
}

// IsAtRiskCandidate reports whether the batch job should reach out to the member.
// Rows already at_risk stay candidates on every run until they are re-engaged or active again.
func IsAtRiskCandidate(a MemberActivity, threshold time.Time) bool {
	return a.LastActiveAt.Before(threshold) && a.Status != StatusReEngaged
}
