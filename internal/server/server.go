package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/resumekit/resume-auth/internal/config"
	"github.com/resumekit/resume-auth/internal/response"
	"github.com/resumekit/resume-auth/internal/routes"
)

const (
	ioTimeout = 15 * time.Second
	// Auth payloads are tiny; anything larger is rejected before parsing.
	bodyLimit = 64 * 1024
)

// Server owns the Fiber application serving the auth API.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
}

// New builds the server. db and cache may be nil in development, in which
// case users are kept in memory and rate limits are per process.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           ioTimeout,
		WriteTimeout:          ioTimeout,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: !cfg.IsDev(),
		ErrorHandler:          response.ErrorHandler(logger),
	})

	if err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger}); err != nil {
		return nil, err
	}
	return &Server{app: app, addr: cfg.Address(), logger: logger}, nil
}

// Handler exposes the underlying app, mainly for in-process tests.
func (s *Server) Handler() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP until Shutdown is called.
func (s *Server) Listen() error {
	s.logger.Info("listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
