package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"

	"github.com/resumekit/resume-auth/internal/auth"
	"github.com/resumekit/resume-auth/internal/config"
	"github.com/resumekit/resume-auth/internal/identity"
	"github.com/resumekit/resume-auth/internal/middleware"
	"github.com/resumekit/resume-auth/internal/notification"
	"github.com/resumekit/resume-auth/internal/otp"
	"github.com/resumekit/resume-auth/internal/password"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Meter is optional; the global provider is used when nil.
	Meter metric.MeterProvider
	// Notifier overrides the one derived from Cfg.SMTP.
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	svc, tokens, err := newAuthService(d)
	if err != nil {
		return err
	}
	RegisterAuthRoutes(app.Group("/api"), auth.NewHandler(svc, d.Logger), AuthMiddleware{
		Idempotency: middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		Signup:      middleware.RateLimit(d.Cache, "signup", d.Cfg.OTPPerMinute),
		Login:       middleware.RateLimit(d.Cache, "login", d.Cfg.LoginPerMinute),
		Resend:      middleware.RateLimit(d.Cache, "resend", d.Cfg.OTPPerMinute),
		Session:     middleware.JWTAuth(tokens),
	})
	return nil
}

func newAuthService(d Deps) (*auth.Service, *auth.TokenIssuer, error) {
	var users identity.Repository
	if d.DB != nil {
		users = identity.NewPostgresRepository(d.DB)
	} else {
		users = identity.NewMemoryRepository()
	}

	hasher, err := password.NewBcrypt(d.Cfg.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := auth.NewTokenIssuer(d.Cfg.JWTSecret, d.Cfg.AppName, d.Cfg.TokenTTL)
	if err != nil {
		return nil, nil, err
	}
	notifier, err := newNotifier(d)
	if err != nil {
		return nil, nil, err
	}

	svc, err := auth.NewService(auth.Deps{
		Users:     users,
		Passwords: hasher,
		Codes:     otp.NewGenerator(d.Cfg.AppName),
		Verifier:  otp.NewVerifier(),
		Tokens:    tokens,
		Notifier:  notifier,
		Logger:    d.Logger,
		Meter:     d.Meter,
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, tokens, nil
}

func newNotifier(d Deps) (notification.Notifier, error) {
	if d.Notifier != nil {
		return d.Notifier, nil
	}
	if d.Cfg.SMTP.Host == "" {
		d.Logger.Warn("SMTP_HOST not set, OTP emails will only be logged")
		return notification.NewLoggerNotifier(d.Logger), nil
	}
	return notification.NewSMTPNotifier(notification.SMTPConfig{
		Host:     d.Cfg.SMTP.Host,
		Port:     d.Cfg.SMTP.Port,
		User:     d.Cfg.SMTP.User,
		Password: d.Cfg.SMTP.Password,
		From:     d.Cfg.SMTP.From,
	})
}
