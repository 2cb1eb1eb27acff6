package auth

import (
	"context"
	"log/slog"
)

// SMSSender delivers one-time codes to a phone number.
type SMSSender interface {
	SendOTP(ctx context.Context, phoneNumber, code string) error
}

// LoggerSender writes codes to the structured logger instead of an SMS gateway.
type LoggerSender struct {
	logger *slog.Logger
}

func NewLoggerSender(logger *slog.Logger) *LoggerSender {
	return &LoggerSender{logger: logger}
}

func (s *LoggerSender) SendOTP(_ context.Context, phoneNumber, code string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("otp issued", slog.String("phone_number", phoneNumber), slog.String("code", code))
	return nil
}
