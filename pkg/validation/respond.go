package validation

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

// Respond writes a 400 with the per-field error map.
func Respond(c *fiber.Ctx, errs map[string][]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ValidationErrorResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}
