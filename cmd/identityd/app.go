package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	identity "github.com/trustlayer/go-identity"
	"github.com/trustlayer/go-identity/activitymap"
	"github.com/trustlayer/go-identity/config"
	"github.com/trustlayer/go-identity/mail"
)

type app struct {
	cfg    *config.Config
	logger *identity.SlogLogger
	db     *bun.DB
	http   *fiber.App
}

func run(ctx context.Context, cfg *config.Config, logger *identity.SlogLogger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.db.Close()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.HTTP.Address, "env", cfg.Environment)
		errc <- a.http.Listen(cfg.HTTP.Address)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := a.http.ShutdownWithTimeout(cfg.HTTP.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *identity.SlogLogger) (*app, error) {
	db, err := openDB(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	var usersOpts []identity.UsersOption
	if cfg.Auth.DeterministicIDs {
		usersOpts = append(usersOpts, identity.WithDeterministicIDs())
	}
	repo := identity.NewRepositoryManager(db, usersOpts...)
	if err := repo.Validate(); err != nil {
		db.Close()
		return nil, err
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	debug := cfg.IsDevelopment() && cfg.Debug
	activity := activitymap.NewLogSink(logger.With("component", "activity"))

	lifecycle := identity.NewLifecycle(repo,
		identity.WithLogger(logger.With("component", "lifecycle")),
		identity.WithNotifier(notifier),
		identity.WithActivitySink(activity),
		identity.WithOTPTTL(cfg.OTP.TTL),
		identity.WithOTPCooldown(cfg.OTP.Cooldown),
		identity.WithAsyncNotifications(cfg.OTP.AsyncNotify),
		identity.WithDebug(debug),
	)

	tokens := identity.NewTokenService(cfg.Auth, logger.With("component", "tokens"))
	provider := identity.NewUserProvider(repo).WithLogger(logger.With("component", "provider"))
	auther := identity.NewAuthenticator(provider, tokens).
		WithLogger(logger.With("component", "auth")).
		WithActivitySink(activity)

	controller := identity.NewAuthController(lifecycle, auther, tokens,
		identity.WithControllerLogger(logger.With("component", "http")),
		identity.WithControllerDebug(debug),
		identity.WithControllerConfig(cfg.Auth),
	)

	server := fiber.New(fiber.Config{
		AppName:      "identityd",
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		ErrorHandler: identity.ErrorHandler(logger.With("component", "http"), debug),
	})

	server.Use(recover.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	server.Get("/health", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false})
		}
		return c.JSON(fiber.Map{"ok": true})
	})

	var middleware []fiber.Handler
	if cfg.RateLimit.Max > 0 {
		middleware = append(middleware, rateLimitAuth(cfg.RateLimit))
	}
	identity.RegisterAuthRoutes(server.Group("/auth"), controller, middleware...)

	return &app{cfg: cfg, logger: logger, db: db, http: server}, nil
}

func openDB(ctx context.Context, cfg config.DB) (*bun.DB, error) {
	var (
		sqldb   *sql.DB
		dialect string
		err     error
	)

	switch cfg.Driver {
	case config.DriverSQLite:
		dialect = identity.DialectSQLite
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err == nil && strings.Contains(cfg.DSN, ":memory:") {
			sqldb.SetMaxOpenConns(1)
		}
	case config.DriverPostgres:
		dialect = identity.DialectPostgres
		sqldb, err = sql.Open("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqldb.PingContext(pingCtx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := identity.Migrate(ctx, sqldb, dialect); err != nil {
		sqldb.Close()
		return nil, err
	}

	if dialect == identity.DialectPostgres {
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func newNotifier(cfg *config.Config, logger *identity.SlogLogger) (identity.Notifier, error) {
	m := cfg.Mail
	switch m.Provider {
	case config.MailSMTP:
		return mail.NewSMTPNotifier(mail.SMTPConfig{
			Host:     m.SMTPHost,
			Port:     m.SMTPPort,
			Username: m.SMTPUser,
			Password: m.SMTPPassword,
			From:     m.From,
			FromName: m.FromName,
			Product:  m.Product,
			OTPTTL:   cfg.OTP.TTL,
		}), nil
	case config.MailResend:
		return mail.NewResendNotifier(mail.ResendConfig{
			APIKey:  m.ResendAPIKey,
			From:    m.From,
			BaseURL: m.ResendURL,
			Product: m.Product,
			OTPTTL:  cfg.OTP.TTL,
		})
	case config.MailLog:
		if !cfg.IsDevelopment() {
			return nil, errors.New("the log mail provider is only available in development")
		}
		return mail.NewLogNotifier(logger.With("component", "mail")), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", m.Provider)
	}
}

func rateLimitAuth(cfg config.RateLimit) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(identity.RetryAfterSeconds(cfg.Window)))
			return c.Status(fiber.StatusTooManyRequests).JSON(identity.ErrorResponse{Error: "too many requests"})
		},
	})
}
