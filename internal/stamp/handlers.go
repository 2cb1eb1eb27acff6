package stamp

import (
	"errors"
	"strconv"
	"strings"

	"backend-stizi/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/nearby", authMiddleware, func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("longitude"), 64)
		if errLat != nil || errLng != nil {
			return fiber.NewError(fiber.StatusBadRequest, "latitude and longitude required")
		}
		radius := DefaultRadiusM
		if raw := c.Query("radius"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "radius must be a positive number")
			}
			radius = parsed
		}
		center := geo.Coordinate{Lat: lat, Lng: lng}
		if !center.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "latitude or longitude out of range")
		}
		stamps, err := svc.Nearby(c.Context(), center, radius)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"stamps": stamps})
	})

	r.Get("/my-stamps", authMiddleware, func(c *fiber.Ctx) error {
		stamps, err := svc.Mine(c.Context(), userID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"stamps": stamps})
	})

	r.Post("/collect", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			QRCode string `json:"qrCode"`
		}
		if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.QRCode) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "qrCode required")
		}
		st, err := svc.Collect(c.Context(), userID(c), body.QRCode)
		switch {
		case errors.Is(err, ErrInvalidCode):
			return fiber.NewError(fiber.StatusNotFound, ErrInvalidCode.Error())
		case errors.Is(err, ErrAlreadyCollected):
			return fiber.NewError(fiber.StatusConflict, ErrAlreadyCollected.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"stamp": st})
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if strings.TrimSpace(req.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		if !(geo.Coordinate{Lat: req.Latitude, Lng: req.Longitude}).Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "latitude or longitude out of range")
		}
		st, err := svc.Create(c.Context(), userID(c), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"stamp": st})
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		st, err := svc.Get(c.Context(), c.Params("id"))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"stamp": st})
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
