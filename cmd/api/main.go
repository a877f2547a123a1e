// Package main is the entrypoint for the artist waitlist intake API.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/artcircle/waitlist/internal/config"
	"github.com/artcircle/waitlist/internal/handler"
	"github.com/artcircle/waitlist/internal/metrics"
	"github.com/artcircle/waitlist/internal/middleware"
	"github.com/artcircle/waitlist/internal/notify"
	"github.com/artcircle/waitlist/internal/ratelimit"
	"github.com/artcircle/waitlist/internal/repository"
	"github.com/artcircle/waitlist/internal/server"
	"github.com/artcircle/waitlist/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	recorder := metrics.NewPrometheus()

	limiter, err := ratelimit.New(ratelimit.Config{
		Limit:         cfg.RateLimitMaxSubmissions,
		Window:        cfg.RateLimitWindow,
		MaxKeys:       cfg.RateLimitMaxKeys,
		SweepInterval: cfg.RateLimitSweepInterval,
	}, ratelimit.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create rate limiter", "error", err)
		os.Exit(1)
	}

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to configure notifications", "error", err)
		os.Exit(1)
	}

	intakeService, err := service.NewIntakeService(service.IntakeConfig{
		EnableNotification: cfg.NotifyEnabled,
		RequiredConsents:   cfg.GetRequiredConsents(),
		NotifyTimeout:      cfg.NotifyTimeout,
		StoreTimeout:       cfg.StoreTimeout,
	}, service.IntakeDeps{
		Limiter:  limiter,
		Store:    repo,
		Notifier: notifier,
		Metrics:  recorder,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create intake service", "error", err)
		os.Exit(1)
	}

	r := newRouter(routerDeps{
		handler:        handler.New(),
		health:         handler.NewHealthHandler(repo),
		intake:         handler.NewIntakeHandler(intakeService, logger),
		metricsHandler: recorder.Handler(),
		recorder:       recorder,
		cfg:            cfg,
		logger:         logger,
	})

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Registered first so the pool closes after everything else.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.Go("ratelimit-janitor", limiter.Run)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"rate_limit", limiter.Limit(),
		"rate_limit_window", cfg.RateLimitWindow,
		"notifications", cfg.NotifyEnabled,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newNotifier builds the configured sinks. Disabled or unconfigured yields Noop.
func newNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notify.Sink, error) {
	if !cfg.NotifyEnabled {
		return notify.Noop{}, nil
	}

	var sinks notify.Multi
	if cfg.NotifyTo != "" {
		sesCfg := notify.SESConfig{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKeyID,
			SecretKey: cfg.AWSSecretAccessKey,
			From:      cfg.NotifyFrom,
			To:        cfg.NotifyTo,
		}
		client, err := notify.NewSESClient(ctx, sesCfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notify.NewSESNotifier(client, sesCfg.From, sesCfg.To, logger))
	}
	if cfg.NotifyWebhookURL != "" {
		wh, err := notify.NewWebhookNotifier(notify.WebhookConfig{
			URL:           cfg.NotifyWebhookURL,
			Secret:        cfg.NotifyWebhookSecret,
			AllowInsecure: cfg.IsDevelopment(),
		}, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, wh)
	}

	switch len(sinks) {
	case 0:
		return notify.Noop{}, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	handler        *handler.Handler
	health         *handler.HealthHandler
	intake         *handler.IntakeHandler
	metricsHandler http.Handler
	recorder       metrics.Recorder
	cfg            *config.Config
	logger         *slog.Logger
}

// newRouter configures the chi router with all routes and middleware.
func newRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	if origins := d.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg.AllowedOrigins = origins
	}

	// CORS runs before Recoverer so panic responses carry the headers too.
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Metrics(d.recorder))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		HSTS: d.cfg.IsProduction(),
	}))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	if d.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.metricsHandler)
	}

	// Path used by existing browser clients of the hosted function.
	r.Post("/functions/v1/submit-artist-application", d.intake.Submit)
	r.Post("/api/v1/applications", d.intake.Submit)

	r.NotFound(d.handler.NotFound)
	r.MethodNotAllowed(d.handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
