package rest

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/reengageai/reengage"
	"github.com/reengageai/reengage/metrics"
)

type ActivityController struct {
	Recorder *reengage.Recorder
	Metrics  *metrics.Collectors
}

func (c *ActivityController) InstallTo(identityAuthorizer fiber.Handler, router fiber.Router) {
	router.Post("/activity", combineHandlers(identityAuthorizer, c.serveRecordActivity))
}

func (c *ActivityController) serveRecordActivity(ctx *fiber.Ctx) error {
	userId, ok := authorizedUserId(ctx)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	body := struct {
		CompanyId string `json:"companyId"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "Company ID required")
	}

	err := c.Recorder.Record(ctx.Context(), userId, body.CompanyId)
	if err != nil {
		switch {
		case errors.Is(err, reengage.ErrMissingField):
			return fiber.NewError(fiber.StatusBadRequest, "Company ID required")
		case errors.Is(err, reengage.ErrDatabase):
			requestLog(ctx).WithError(err).Errorln("Could not record activity.")
			return fiber.NewError(fiber.StatusInternalServerError, "Database error")
		default:
			return err
		}
	}
	c.Metrics.Beacon()

	return ctx.JSON(fiber.Map{"success": true})
}
