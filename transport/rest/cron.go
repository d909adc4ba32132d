package rest

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/reengageai/reengage"
)

type BatchRunner interface {
	// Trigger returns the report of aborted runs together with the error.
	Trigger(ctx context.Context) (reengage.RunReport, error)

	LastReport() (reengage.RunReport, error)

	Report(id string) (reengage.RunReport, error)
}

type CronController struct {
	Runner BatchRunner
	// Shared secret expected as bearer token. Empty secret rejects every request.
	Secret string
}

func (c *CronController) InstallTo(router fiber.Router) {
	router.Get("/cron/daily", combineHandlers(c.authorize, c.serveDaily))
	router.Get("/cron/last", combineHandlers(c.authorize, c.serveLast))
	router.Get("/cron/runs/:run_id", combineHandlers(c.authorize, c.serveRun))
}

func (c *CronController) authorize(ctx *fiber.Ctx) error {
	expected := []byte("Bearer " + c.Secret)
	actual := []byte(ctx.Get(fiber.HeaderAuthorization))
	if c.Secret == "" || subtle.ConstantTimeCompare(expected, actual) != 1 {
		requestLog(ctx).Warningln("Rejected cron trigger.")
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return nil
}

func (c *CronController) serveDaily(ctx *fiber.Ctx) error {
	report, err := c.Runner.Trigger(ctx.Context())
	if err != nil {
		requestLog(ctx).WithError(err).
			WithField("run_id", report.Id).
			WithField("processed", report.Processed).
			WithField("sent", report.Sent).
			Errorln("Re-engagement run failed.")
		if report.Id == "" {
			if errors.Is(err, reengage.ErrDatabase) {
				return fiber.NewError(fiber.StatusInternalServerError, "Database error")
			}
			return err
		}

		// notifications may already be out, report what was done
		message := "Internal server error"
		if errors.Is(err, reengage.ErrDatabase) {
			message = "Database error"
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":   false,
			"error":     message,
			"runId":     report.Id,
			"processed": report.Processed,
			"sent":      report.Sent,
			"timestamp": report.CompletedAt.UTC().Format(time.RFC3339),
		})
	}

	return ctx.JSON(fiber.Map{
		"success":   true,
		"processed": report.Processed,
		"sent":      report.Sent,
		"timestamp": report.CompletedAt.UTC().Format(time.RFC3339),
	})
}

func (c *CronController) serveLast(ctx *fiber.Ctx) error {
	report, err := c.Runner.LastReport()
	if err != nil {
		if errors.Is(err, reengage.ErrRunNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "No runs yet")
		}
		return err
	}
	return ctx.JSON(report)
}

func (c *CronController) serveRun(ctx *fiber.Ctx) error {
	report, err := c.Runner.Report(ctx.Params("run_id"))
	if err != nil {
		if errors.Is(err, reengage.ErrRunNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Run not found")
		}
		return err
	}
	return ctx.JSON(report)
}
