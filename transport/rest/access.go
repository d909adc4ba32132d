package rest

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/reengageai/reengage"
)

const accessLevelLocalsKey = "access_level"

type accessResolver func(ctx context.Context, userId string, resourceId string) (reengage.AccessLevel, error)

// requirePermission resolves the user access level to the resource named by the route param
// and stores it in locals.
func requirePermission(param string, resolve accessResolver, permission reengage.PermissionName) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userId, ok := authorizedUserId(ctx)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}
		resourceId := ctx.Params(param)
		if resourceId == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Missing "+param)
		}

		level, err := resolve(ctx.Context(), userId, resourceId)
		if err != nil {
			if errors.Is(err, reengage.ErrCompanyNotFound) || errors.Is(err, reengage.ErrExperienceNotFound) {
				return fiber.NewError(fiber.StatusForbidden, "Access denied")
			} else {
				return fmt.Errorf("check access: %w", err)
			}
		}
		if level.Access(permission) != reengage.AccessAllowed {
			requestLog(ctx).
				WithField("user_id", userId).
				WithField(param, resourceId).
				WithField("access_level", level).
				Infoln("Access denied.")
			return fiber.NewError(fiber.StatusForbidden, "Access denied")
		}

		ctx.Locals(accessLevelLocalsKey, level)
		return nil
	}
}

func requireCompanyPermission(directory reengage.Directory, permission reengage.PermissionName) fiber.Handler {
	return requirePermission("company_id", directory.CompanyAccess, permission)
}

func requireExperiencePermission(directory reengage.Directory, permission reengage.PermissionName) fiber.Handler {
	return requirePermission("experience_id", directory.ExperienceAccess, permission)
}

func authorizedAccessLevel(ctx *fiber.Ctx) reengage.AccessLevel {
	level, ok := ctx.Locals(accessLevelLocalsKey).(reengage.AccessLevel)
	if !ok {
		return reengage.AccessLevelNone
	}
	return level
}
