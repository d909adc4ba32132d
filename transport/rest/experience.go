package rest

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/reengageai/reengage"
)

// ExperienceController serves the member facing view. It tells the activity beacon
// which company the experience belongs to.
type ExperienceController struct {
	Directory reengage.Directory
	// Optional. Adds the viewer's own re-engagement status.
	Activities reengage.ActivityStore
}

func (c *ExperienceController) InstallTo(identityAuthorizer fiber.Handler, router fiber.Router) {
	router.Get("/experiences/:experience_id", combineHandlers(identityAuthorizer,
		requireExperiencePermission(c.Directory, reengage.PermissionExperienceView), c.serveExperience))
}

func (c *ExperienceController) serveExperience(ctx *fiber.Ctx) error {
	experienceId := ctx.Params("experience_id")
	userId, _ := authorizedUserId(ctx)

	experience, err := c.Directory.Experience(ctx.Context(), experienceId)
	if err != nil {
		if errors.Is(err, reengage.ErrExperienceNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Experience not found")
		}
		return fmt.Errorf("get experience: %w", err)
	}

	user, err := c.Directory.User(ctx.Context(), userId)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	var status string
	if c.Activities != nil && experience.CompanyId != "" {
		activity, err := c.Activities.ByKey(ctx.Context(),
			reengage.Key{UserId: userId, CompanyId: experience.CompanyId})
		switch {
		case err == nil:
			status = string(activity.Status)
		case errors.Is(err, reengage.ErrActivityNotFound):
		default:
			requestLog(ctx).WithError(err).WithField("user_id", userId).Warningln("Could not read member activity.")
		}
	}

	return ctx.JSON(fiber.Map{
		"experienceId":   experience.Id,
		"experienceName": experience.Name,
		"companyId":      experience.CompanyId,
		"accessLevel":    authorizedAccessLevel(ctx),
		"userName":       user.DisplayName(),
		"memberStatus":   status,
	})
}
