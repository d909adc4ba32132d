package mock

import (
	"context"

	"github.com/reengageai/reengage"
)

type Platform struct {
	MemberFn func(ctx context.Context, userId string, companyId string) (reengage.Member, error)

	SendNotificationFn func(ctx context.Context, notification reengage.Notification) error
}

func (p *Platform) Member(ctx context.Context, userId string, companyId string) (reengage.Member, error) {
	return p.MemberFn(ctx, userId, companyId)
}

func (p *Platform) SendNotification(ctx context.Context, notification reengage.Notification) error {
	return p.SendNotificationFn(ctx, notification)
}

type Directory struct {
	UserFn func(ctx context.Context, userId string) (reengage.Member, error)

	CompanyFn func(ctx context.Context, companyId string) (reengage.Company, error)

	CompanyAccessFn func(ctx context.Context, userId string, companyId string) (reengage.AccessLevel, error)

	ExperienceFn func(ctx context.Context, experienceId string) (reengage.Experience, error)

	ExperienceAccessFn func(ctx context.Context, userId string, experienceId string) (reengage.AccessLevel, error)
}

func (d *Directory) User(ctx context.Context, userId string) (reengage.Member, error) {
	return d.UserFn(ctx, userId)
}

func (d *Directory) Company(ctx context.Context, companyId string) (reengage.Company, error) {
	return d.CompanyFn(ctx, companyId)
}

func (d *Directory) CompanyAccess(ctx context.Context, userId string, companyId string) (reengage.AccessLevel, error) {
	return d.CompanyAccessFn(ctx, userId, companyId)
}

func (d *Directory) Experience(ctx context.Context, experienceId string) (reengage.Experience, error) {
	return d.ExperienceFn(ctx, experienceId)
}

func (d *Directory) ExperienceAccess(ctx context.Context, userId string, experienceId string) (reengage.AccessLevel, error) {
	return d.ExperienceAccessFn(ctx, userId, experienceId)
}

type IdentityVerifier struct {
	VerifyFn func(token string) (string, error)
}

func (v *IdentityVerifier) Verify(token string) (string, error) {
	return v.VerifyFn(token)
}

type Composer struct {
	ComposeFn func(ctx context.Context, member reengage.Member, communityName string) string
}

func (c *Composer) Compose(ctx context.Context, member reengage.Member, communityName string) string {
	return c.ComposeFn(ctx, member, communityName)
}
