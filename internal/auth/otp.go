package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	OTPLength      = 6
	MaxOTPAttempts = 5
)

var (
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidOTP      = errors.New("invalid or expired code")
	ErrTooManyAttempts = errors.New("too many attempts, request a new code")
	ErrOTPUnavailable  = errors.New("otp store unavailable")
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

// NormalizePhone strips formatting characters and validates the result.
func NormalizePhone(raw string) (string, error) {
	phone := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

func otpKey(phone string) string         { return "otp:" + phone }
func otpAttemptsKey(phone string) string { return "otp:" + phone + ":attempts" }

var generateCodeFn = generateCode

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < OTPLength; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// otpStore keeps bcrypt hashes of outstanding codes in Redis. A cost below
// bcrypt.MinCost hashes with bcrypt.DefaultCost.
type otpStore struct {
	cache *redis.Client
	ttl   time.Duration
	cost  int
}

func (s otpStore) issue(ctx context.Context, phone string) (string, error) {
	if s.cache == nil {
		return "", ErrOTPUnavailable
	}
	code, err := generateCodeFn()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", err
	}
	pipe := s.cache.TxPipeline()
	pipe.Set(ctx, otpKey(phone), hash, s.ttl)
	pipe.Del(ctx, otpAttemptsKey(phone))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return code, nil
}

// verify consumes the outstanding code for phone when it matches.
func (s otpStore) verify(ctx context.Context, phone, code string) error {
	if s.cache == nil {
		return ErrOTPUnavailable
	}
	hash, err := s.cache.Get(ctx, otpKey(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}

	attempts, err := s.cache.Incr(ctx, otpAttemptsKey(phone)).Result()
	if err != nil {
		return err
	}
	if attempts == 1 {
		s.cache.Expire(ctx, otpAttemptsKey(phone), s.ttl)
	}
	if attempts > MaxOTPAttempts {
		s.cache.Del(ctx, otpKey(phone), otpAttemptsKey(phone))
		return ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil {
		return ErrInvalidOTP
	}
	return s.cache.Del(ctx, otpKey(phone), otpAttemptsKey(phone)).Err()
}
