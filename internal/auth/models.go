package auth

import (
	"time"

	"backend-stizi/internal/stamp"
)

type User struct {
	ID          string        `json:"id"`
	PhoneNumber string        `json:"phoneNumber"`
	Name        string        `json:"name,omitempty"`
	Email       string        `json:"email,omitempty"`
	Stamps      []stamp.Stamp `json:"stamps"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type SendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	OTP         string `json:"otp"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
