package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// StatusResolver maps a domain error to an HTTP status, or 0 if it does not
// know the error.
type StatusResolver func(err error) int

// ErrorHandlerMiddleware turns errors returned by handlers into the standard
// JSON error envelope.
func ErrorHandlerMiddleware(resolvers ...StatusResolver) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			return ctx.Status(fiber.StatusBadRequest).JSON(Response{
				Success: false,
				Code:    fiber.StatusBadRequest,
				Message: err.Error(),
				Data:    ve.Fields,
			})
		case errors.As(err, &fe):
			status = fe.Code
		default:
			for _, resolve := range resolvers {
				if s := resolve(err); s != 0 {
					status = s
					break
				}
			}
		}
		return ctx.Status(status).JSON(ErrorResponse(status, err.Error()))
	}
}
