package serverutils

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"ai-docchat-be/pkg/apierr"
	"ai-docchat-be/pkg/resilient"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON
// responses, mapping upstream failure classes to HTTP status codes.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}

		status := fiber.StatusInternalServerError
		switch apierr.KindOf(err) {
		case apierr.KindInvalidRequest:
			status = fiber.StatusBadRequest
		case apierr.KindTimeout:
			status = fiber.StatusGatewayTimeout
		case apierr.KindTransient, apierr.KindConnection, apierr.KindUnavailable:
			status = fiber.StatusBadGateway
		}
		if resilient.IsRetriesExhausted(err) {
			status = fiber.StatusBadGateway
		}

		log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		return ctx.Status(status).JSON(ErrorResponse(err.Error()))
	}
}
