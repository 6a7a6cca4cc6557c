package handlers

import (
	"errors"

	"inhouse-league/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:     fiber.StatusNotFound,
	services.KindValidation:   fiber.StatusBadRequest,
	services.KindForbidden:    fiber.StatusForbidden,
	services.KindConflict:     fiber.StatusConflict,
	services.KindInvalidState: fiber.StatusUnprocessableEntity,
}

// respondError writes a domain error with its status, anything else as 500.
func respondError(c *fiber.Ctx, log *logrus.Entry, err error) error {
	var appErr *services.Error
	if errors.As(err, &appErr) {
		body := fiber.Map{"error": appErr.Code, "message": appErr.Message}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		return c.Status(kindStatus[appErr.Kind]).JSON(body)
	}
	log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "internal_error",
		"message": "internal server error",
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "invalid_body",
		"message": "invalid request body",
	})
}

// parseBody decodes a JSON body; an empty body leaves out untouched so
// gateway-identified callers may omit it.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}
