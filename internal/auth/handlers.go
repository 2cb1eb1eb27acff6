package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, sendLimiter fiber.Handler) {
	if sendLimiter == nil {
		sendLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	r.Post("/send-otp", sendLimiter, func(c *fiber.Ctx) error {
		var req SendOTPRequest
		if err := c.BodyParser(&req); err != nil || req.PhoneNumber == "" {
			return fiber.NewError(fiber.StatusBadRequest, "phoneNumber required")
		}
		if err := svc.SendOTP(c.Context(), req.PhoneNumber); err != nil {
			if errors.Is(err, ErrInvalidPhone) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"success": true})
	})

	r.Post("/verify-otp", func(c *fiber.Ctx) error {
		var req VerifyOTPRequest
		if err := c.BodyParser(&req); err != nil || req.PhoneNumber == "" || req.OTP == "" {
			return fiber.NewError(fiber.StatusBadRequest, "phoneNumber and otp required")
		}
		resp, err := svc.VerifyOTP(c.Context(), req.PhoneNumber, req.OTP)
		switch {
		case errors.Is(err, ErrInvalidPhone):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, ErrInvalidOTP):
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrTooManyAttempts):
			return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(resp)
	})

	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		user, err := svc.Me(c.Context(), userID)
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"user": user})
	})
}
