package rest

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/reengageai/reengage"
	"github.com/reengageai/reengage/whop"
)

const userIdLocalsKey = "user_id"

// IdentityAuthorizer verifies the platform user token and stores the user id in locals.
func IdentityAuthorizer(verifier reengage.IdentityVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := ctx.Get(whop.UserTokenHeader)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		userId, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, reengage.ErrUnauthorized) {
				requestLog(ctx).WithError(err).Infoln("Rejected user token.")
				return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
			} else {
				return fmt.Errorf("verify user token: %w", err)
			}
		}
		if userId == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		ctx.Locals(userIdLocalsKey, userId)
		return nil
	}
}

func authorizedUserId(ctx *fiber.Ctx) (string, bool) {
	userId, ok := ctx.Locals(userIdLocalsKey).(string)
	return userId, ok && userId != ""
}
