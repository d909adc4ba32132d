package rest

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/reengageai/reengage"
)

const maxNotificationsLimit = 100

type DashboardController struct {
	Activities reengage.ActivityStore
	Directory  reengage.Directory
	Logs       reengage.NotificationLogStore

	ThresholdDays int
	// Human readable batch schedule shown on the dashboard.
	Schedule string
	Now      func() time.Time
}

func (c *DashboardController) InstallTo(identityAuthorizer fiber.Handler, router fiber.Router) {
	router.Get("/dashboard/:company_id", combineHandlers(identityAuthorizer,
		requireCompanyPermission(c.Directory, reengage.PermissionDashboardView), c.serveDashboard))
	router.Get("/dashboard/:company_id/notifications", combineHandlers(identityAuthorizer,
		requireCompanyPermission(c.Directory, reengage.PermissionNotificationsView), c.serveNotifications))
}

func (c *DashboardController) serveDashboard(ctx *fiber.Ctx) error {
	companyId := ctx.Params("company_id")
	userId, _ := authorizedUserId(ctx)

	company, err := c.Directory.Company(ctx.Context(), companyId)
	if err != nil {
		return fmt.Errorf("get company: %w", err)
	}

	// viewer name is decoration only
	var username string
	viewer, err := c.Directory.User(ctx.Context(), userId)
	if err != nil {
		requestLog(ctx).WithError(err).WithField("user_id", userId).Debugln("Could not fetch viewer.")
	} else {
		username = viewer.Username
	}

	rows, err := c.Activities.ByCompany(ctx.Context(), companyId)
	if err != nil {
		requestLog(ctx).WithError(err).Errorln("Could not read company activity.")
		return fiber.NewError(fiber.StatusInternalServerError, "Database error")
	}
	summary := reengage.Summarize(rows, reengage.Threshold(c.now(), c.ThresholdDays))

	return ctx.JSON(fiber.Map{
		"companyId":        companyId,
		"companyName":      company.Title,
		"viewerUsername":   username,
		"thresholdDays":    c.ThresholdDays,
		"activeMembers":    summary.Active,
		"atRiskMembers":    summary.AtRisk,
		"reEngagedMembers": summary.ReEngaged,
		"schedule":         c.Schedule,
	})
}

func (c *DashboardController) serveNotifications(ctx *fiber.Ctx) error {
	if c.Logs == nil {
		return ctx.JSON([]struct{}{})
	}
	companyId := ctx.Params("company_id")

	before := int64(ctx.QueryInt("before", -1))
	limit := ctx.QueryInt("limit", 20)
	if limit > maxNotificationsLimit {
		limit = maxNotificationsLimit
	}

	logs, err := c.Logs.ByCompany(ctx.Context(), companyId, before, limit)
	if err != nil {
		return fmt.Errorf("get notification logs: %w", err)
	}

	type Log struct {
		Id        int64  `json:"id"`
		CreatedAt int64  `json:"createdAt"`
		RunId     string `json:"runId"`
		UserId    string `json:"userId"`
		Title     string `json:"title"`
		Content   string `json:"content"`
	}
	mapped := make([]Log, len(logs))
	for i, log := range logs {
		mapped[i] = Log{
			Id:        log.Id,
			CreatedAt: log.CreatedAt.Unix(),
			RunId:     log.RunId,
			UserId:    log.UserId,
			Title:     log.Title,
			Content:   log.Content,
		}
	}
	return ctx.JSON(mapped)
}

func (c *DashboardController) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}
