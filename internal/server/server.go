package server

import (
	"errors"
	"log/slog"

	"backend-stizi/internal/auth"
	"backend-stizi/internal/config"
	"backend-stizi/internal/logging"
	"backend-stizi/internal/stamp"
	"backend-stizi/internal/storage"
	"backend-stizi/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Logger *slog.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	app := fiber.New(fiber.Config{
		AppName:      "stizi",
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient, log),
		Logger: log,
	}

	registerRoutes(s)
	return s
}

// errorHandler renders every failure as {"message": ...}.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				slog.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}
		return c.Status(code).JSON(fiber.Map{"message": err.Error()})
	}
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	stampSvc := stamp.NewService(s.DB, s.Stream)
	authSvc := auth.NewService(s.Cfg.JWTSecret, s.DB, s.Redis,
		auth.WithTokenTTL(s.Cfg.TokenTTL),
		auth.WithOTPTTL(s.Cfg.OTPTTL),
		auth.WithOTPCost(s.Cfg.OTPHashCost),
		auth.WithStamps(stampSvc),
		auth.WithLogger(s.Logger),
	)

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc, jwtMiddleware, auth.OTPRateLimit(s.Redis, s.Cfg.OTPRatePerMin))
	stamp.RegisterRoutes(s.App.Group("/stamps"), stampSvc, jwtMiddleware)
	storage.RegisterRoutes(s.App.Group("/storage"), storage.NewService(s.DB, s.Cfg.StorageBaseURL), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
