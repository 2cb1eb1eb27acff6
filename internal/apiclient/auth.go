package apiclient

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"backend-stizi/internal/collect"
)

type User struct {
	ID          string          `json:"id"`
	PhoneNumber string          `json:"phoneNumber"`
	Name        string          `json:"name,omitempty"`
	Email       string          `json:"email,omitempty"`
	Stamps      []collect.Stamp `json:"stamps"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (c *Client) SendOTP(ctx context.Context, phoneNumber string) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, fiber.MethodPost, "/auth/send-otp", nil, fiber.Map{"phoneNumber": phoneNumber}, &out)
}

// VerifyOTP exchanges the code for a session token, which is kept in the
// token store for subsequent calls.
func (c *Client) VerifyOTP(ctx context.Context, phoneNumber, otp string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, fiber.MethodPost, "/auth/verify-otp", nil, fiber.Map{"phoneNumber": phoneNumber, "otp": otp}, &out)
	if err != nil {
		return AuthResponse{}, err
	}
	if out.Token != "" {
		if err := c.tokens.SetToken(ctx, out.Token); err != nil {
			return AuthResponse{}, err
		}
	}
	return out, nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, fiber.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return User{}, err
	}
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Clear(ctx)
}
