package reengage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrCompanyNotFound    = errors.New("company not found")
	ErrExperienceNotFound = errors.New("experience not found")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Member is a community member profile as reported by the platform.
type Member struct {
	UserId   string
	Name     string
	Username string
	Email    string
	JoinedAt time.Time
}

// DisplayName returns the member name or a neutral greeting word when the platform has none.
func (m Member) DisplayName() string {
	if m.Name == "" {
		return "there"
	}
	return m.Name
}

type Company struct {
	Id    string
	Title string
}

// Experience is a single app installation inside a company.
type Experience struct {
	Id        string
	Name      string
	CompanyId string
}

type Notification struct {
	Title        string
	Content      string
	Topic        string
	CompanyId    string
	RecipientIds []string
}

// Platform is the part of the community platform API used by the batch job.
type Platform interface {
	// Returns ErrMemberNotFound if the user is not a member of the company.
	Member(ctx context.Context, userId string, companyId string) (Member, error)

	SendNotification(ctx context.Context, notification Notification) error
}

// Directory is the read side of the platform API used by the dashboard.
type Directory interface {
	User(ctx context.Context, userId string) (Member, error)

	Company(ctx context.Context, companyId string) (Company, error)

	CompanyAccess(ctx context.Context, userId string, companyId string) (AccessLevel, error)

	// Returns ErrExperienceNotFound for unknown experiences.
	Experience(ctx context.Context, experienceId string) (Experience, error)

	ExperienceAccess(ctx context.Context, userId string, experienceId string) (AccessLevel, error)
}

// IdentityVerifier turns a platform-issued user token into a verified user id.
type IdentityVerifier interface {
	// Returns ErrUnauthorized for missing, malformed or expired tokens.
	Verify(token string) (string, error)
}

type Composer interface {
	// Compose never fails. Generation errors are replaced with a fallback text.
	Compose(ctx context.Context, member Member, communityName string) string
}
