package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-stizi/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func decodeMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Message
}

func TestHealthRoute(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0"}, nil, nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestErrorsRenderMessage(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret"}, nil, nil, nil)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/stamps/my-stamps", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if msg := decodeMessage(t, resp); msg != "missing bearer token" {
		t.Fatalf("unexpected message %q", msg)
	}

	resp, err = s.App.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || decodeMessage(t, resp) == "" {
		t.Fatalf("expected 404 with message")
	}
}

func TestSendOTPThroughServer(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewServer(config.Config{JWTSecret: "secret", OTPRatePerMin: 1, OTPHashCost: bcrypt.MinCost}, nil, rdb, nil)
	defer s.Stream.Close()

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/auth/send-otp", bytes.NewReader([]byte(`{"phoneNumber":"+6281234567890"}`)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.App.Test(req, -1)
		if err != nil {
			t.Fatalf("test request: %v", err)
		}
		return resp.StatusCode
	}
	if code := send(); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !mr.Exists("otp:+6281234567890") {
		t.Fatalf("expected otp stored in redis")
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
}
