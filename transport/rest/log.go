package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func LogHandler() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()
		requestLog(ctx).
			WithField("method", ctx.Method()).
			WithField("status", ctx.Response().StatusCode()).
			WithField("latency", time.Since(start).String()).
			Debugln("Handled request.")
		return err
	}
}
