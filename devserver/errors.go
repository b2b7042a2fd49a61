package devserver

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/anjiri1684/skill_exchange/api"
)

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"message": msg})
}

// parseBody decodes the JSON body into v and validates it. On failure the
// response has already been written and handled is true.
func parseBody(c *fiber.Ctx, v any) (handled bool, err error) {
	if err := c.BodyParser(v); err != nil {
		return true, fail(c, fiber.StatusBadRequest, "Cannot parse request body")
	}
	if err := validate(v); err != nil {
		return true, validationFailed(c, err)
	}
	return false, nil
}

func validate(v any) error {
	return api.Validator().Struct(v)
}

func validationFailed(c *fiber.Ctx, err error) error {
	fields := api.FieldErrors(err)
	if fields == nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  fields,
	})
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
