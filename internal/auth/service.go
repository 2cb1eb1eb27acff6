package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"backend-stizi/internal/db"
	"backend-stizi/internal/logging"
	"backend-stizi/internal/stamp"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTokenTTL = 7 * 24 * time.Hour
	defaultOTPTTL   = 5 * time.Minute
)

var ErrUserNotFound = errors.New("user not found")

// StampLister loads the stamps a user has collected.
type StampLister interface {
	Mine(ctx context.Context, userID string) ([]stamp.Stamp, error)
}

type Service struct {
	secret   []byte
	db       db.Querier
	otp      otpStore
	sender   SMSSender
	stamps   StampLister
	tokenTTL time.Duration
	logger   *slog.Logger
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type Option func(*Service)

func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

func WithOTPTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.otp.ttl = d
		}
	}
}

// WithOTPCost sets the bcrypt cost used to hash one-time codes.
func WithOTPCost(cost int) Option {
	return func(s *Service) { s.otp.cost = cost }
}

func WithSender(sender SMSSender) Option {
	return func(s *Service) {
		if sender != nil {
			s.sender = sender
		}
	}
}

func WithStamps(stamps StampLister) Option {
	return func(s *Service) { s.stamps = stamps }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(secret string, db db.Querier, cache *redis.Client, opts ...Option) *Service {
	s := &Service{
		secret:   []byte(secret),
		db:       db,
		otp:      otpStore{cache: cache, ttl: defaultOTPTTL},
		tokenTTL: defaultTokenTTL,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sender == nil {
		s.sender = NewLoggerSender(s.logger)
	}
	return s
}

// SendOTP issues a fresh code for phone and hands it to the SMS sender.
// Requesting a new code invalidates the previous one.
func (s *Service) SendOTP(ctx context.Context, phone string) error {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	code, err := s.otp.issue(ctx, phone)
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.sender.SendOTP(ctx, phone, code); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

// VerifyOTP consumes the code and returns a signed token for the phone's
// user, creating the user on first login.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (AuthResponse, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return AuthResponse{}, err
	}
	if len(code) != OTPLength {
		return AuthResponse{}, ErrInvalidOTP
	}
	if err := s.otp.verify(ctx, phone, code); err != nil {
		return AuthResponse{}, err
	}

	user := User{Stamps: []stamp.Stamp{}}
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, phone_number, last_login_at)
		VALUES ($1, $2, now())
		ON CONFLICT (phone_number) DO UPDATE SET last_login_at = now()
		RETURNING id, phone_number, COALESCE(name, ''), COALESCE(email, ''), created_at
	`, uuid.NewString(), phone)
	if err := row.Scan(&user.ID, &user.PhoneNumber, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		return AuthResponse{}, err
	}

	if user.Stamps, err = s.collected(ctx, user.ID); err != nil {
		return AuthResponse{}, err
	}

	token, err := s.signToken(user.ID, s.tokenTTL)
	if err != nil {
		return AuthResponse{}, err
	}
	s.logger.Info("user signed in", slog.String("user_id", user.ID))
	return AuthResponse{Token: token, User: user}, nil
}

// Me loads the user together with the stamps they have collected.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	var user User
	row := s.db.QueryRow(ctx, `
		SELECT id, phone_number, COALESCE(name, ''), COALESCE(email, ''), created_at
		FROM users WHERE id = $1
	`, userID)
	if err := row.Scan(&user.ID, &user.PhoneNumber, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	stamps, err := s.collected(ctx, user.ID)
	if err != nil {
		return User{}, err
	}
	user.Stamps = stamps
	return user, nil
}

func (s *Service) collected(ctx context.Context, userID string) ([]stamp.Stamp, error) {
	if s.stamps == nil {
		return []stamp.Stamp{}, nil
	}
	return s.stamps.Mine(ctx, userID)
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) signToken(userID string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}
