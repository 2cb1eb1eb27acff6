package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+62 812-3456-7890": "+6281234567890",
		"(021) 555 0199":    "0215550199",
		" 081234567890 ":    "081234567890",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "12345", "+62abc4567890", "1234567890123456"} {
		if _, err := NormalizePhone(bad); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("%q: expected invalid phone", bad)
		}
	}
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != OTPLength {
			t.Fatalf("unexpected code %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in %q", code)
			}
		}
	}
}

func TestOTPStoreIssueVerify(t *testing.T) {
	mr, client := newRedis(t)
	store := otpStore{cache: client, ttl: time.Minute, cost: bcrypt.MinCost}
	ctx := context.Background()

	code, err := store.issue(ctx, "+6281234567890")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	stored, _ := mr.Get(otpKey("+6281234567890"))
	if stored == "" || stored == code {
		t.Fatalf("expected hashed code in redis")
	}
	if ttl := mr.TTL(otpKey("+6281234567890")); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if err := store.verify(ctx, "+6281234567890", "xxxxxx"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected invalid otp, got %v", err)
	}
	if err := store.verify(ctx, "+6281234567890", code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := store.verify(ctx, "+6281234567890", code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("codes are single use, got %v", err)
	}
}

func TestOTPStoreExpiry(t *testing.T) {
	mr, client := newRedis(t)
	store := otpStore{cache: client, ttl: time.Minute, cost: bcrypt.MinCost}
	code, err := store.issue(context.Background(), "+6281234567890")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := store.verify(context.Background(), "+6281234567890", code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected expired code to fail, got %v", err)
	}
}

func TestOTPStoreAttemptCap(t *testing.T) {
	_, client := newRedis(t)
	store := otpStore{cache: client, ttl: time.Minute, cost: bcrypt.MinCost}
	ctx := context.Background()
	code, err := store.issue(ctx, "+6281234567890")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < MaxOTPAttempts; i++ {
		if err := store.verify(ctx, "+6281234567890", "000000x"); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("attempt %d: expected invalid otp, got %v", i, err)
		}
	}
	if err := store.verify(ctx, "+6281234567890", code); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected attempt cap, got %v", err)
	}
	if err := store.verify(ctx, "+6281234567890", code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("code should be burned after the cap, got %v", err)
	}
}

func TestOTPStoreReissueResetsAttempts(t *testing.T) {
	_, client := newRedis(t)
	store := otpStore{cache: client, ttl: time.Minute, cost: bcrypt.MinCost}
	ctx := context.Background()
	if _, err := store.issue(ctx, "+6281234567890"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < MaxOTPAttempts; i++ {
		_ = store.verify(ctx, "+6281234567890", "bad")
	}
	code, err := store.issue(ctx, "+6281234567890")
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if err := store.verify(ctx, "+6281234567890", code); err != nil {
		t.Fatalf("verify after reissue: %v", err)
	}
}

func TestOTPStoreWithoutRedis(t *testing.T) {
	store := otpStore{ttl: time.Minute}
	if _, err := store.issue(context.Background(), "+6281234567890"); !errors.Is(err, ErrOTPUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err := store.verify(context.Background(), "+6281234567890", "123456"); !errors.Is(err, ErrOTPUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestOTPStoreHashCost(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	fast := otpStore{cache: client, ttl: time.Minute, cost: bcrypt.MinCost}
	if _, err := fast.issue(ctx, "+6281234567890"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	stored, _ := mr.Get(otpKey("+6281234567890"))
	if cost, err := bcrypt.Cost([]byte(stored)); err != nil || cost != bcrypt.MinCost {
		t.Fatalf("expected min cost hash, got %d (%v)", cost, err)
	}

	svc := NewService("secret", nil, client)
	if _, err := svc.otp.issue(ctx, "+6289999999999"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	stored, _ = mr.Get(otpKey("+6289999999999"))
	if cost, err := bcrypt.Cost([]byte(stored)); err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost hash, got %d (%v)", cost, err)
	}
}
