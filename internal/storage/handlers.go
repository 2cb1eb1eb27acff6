package storage

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/stamps/:id/image", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			FileName string `json:"fileName"`
		}
		if err := c.BodyParser(&body); err != nil || body.FileName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "fileName required")
		}
		userID, _ := c.Locals("user_id").(string)
		url, err := svc.AttachImage(c.Context(), c.Params("id"), userID, body.FileName)
		switch {
		case errors.Is(err, ErrInvalidFileName):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ErrStampNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotOwner):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"imageUrl": url})
	})
}
