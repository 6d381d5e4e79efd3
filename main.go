package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskhub/config"
	"taskhub/database"
	"taskhub/handlers"
	"taskhub/handlers/admin"
	"taskhub/logging"
	"taskhub/middleware"
	"taskhub/realtime"
	"taskhub/services"
	"taskhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 5 * time.Minute
	bucketIdle      = 30 * time.Minute
)

func main() {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL: build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if !envLoaded {
		log.Warn(".env file not found, using system environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.IsProduction() && strings.Contains(cfg.CORSOrigins, "localhost") {
		log.Warn("CORS_ORIGINS not properly configured for production", zap.String("origins", cfg.CORSOrigins))
	}

	db, err := database.Open(cfg.DatabaseURL, !cfg.IsProduction(), log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("close database", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(log)
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	audit := services.NewAuditService(db, log, cfg.AuditLog)
	history := services.NewHistoryService(db, log)
	notifications := services.NewNotificationService(db, log, hub)
	tasks := services.NewTaskService(db, log, history, notifications, hub)
	analytics := services.NewAnalyticsService(db, log)
	access := services.NewAccessService(db, log)

	h := &handlers.Handlers{
		Auth:          services.NewAuthService(db, log, tokens, cfg.AdminEmailPattern),
		Tasks:         tasks,
		Bulk:          services.NewBulkService(db, log, audit, history, notifications, hub),
		Comments:      services.NewCommentService(db, log, tasks, notifications),
		Notifications: notifications,
		Organizations: services.NewOrganizationService(db, log),
		Teams:         services.NewTeamService(db, log),
		Analytics:     analytics,
		AI:            services.NewAIService(db, log, tasks, analytics),
		Log:           log,
	}

	var apiLimiter, authLimiter, wsLimiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		apiLimiter = middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		authLimiter = middleware.NewRateLimiter(cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow)
		wsLimiter = middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
		for _, rl := range []*middleware.RateLimiter{apiLimiter, authLimiter, wsLimiter} {
			rl.StartSweeper(ctx, sweepInterval, bucketIdle)
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log, cfg.IsProduction()),
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + middleware.OrganizationHeader,
		AllowCredentials: true,
	}))
	app.Use(middleware.FiberRateLimit(apiLimiter, "Too many requests, please try again later."))

	h.Routes(app, handlers.Deps{
		Tokens:      tokens,
		Access:      access,
		Hub:         hub,
		AuthLimiter: authLimiter,
		Admin: &admin.Handlers{
			Admin: services.NewAdminService(db, log, audit),
			Audit: audit,
		},
	})

	// Standalone WebSocket server (pure net/http)
	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", middleware.HTTPAuth(tokens, access)(realtime.HTTPHandler(hub, originPatterns(cfg.CORSOrigins), log)))
	wsServer := &http.Server{
		Addr:              ":" + cfg.WSPort,
		Handler:           middleware.HTTPRecover(log)(middleware.HTTPCORS(splitOrigins(cfg.CORSOrigins))(middleware.HTTPRateLimit(wsLimiter)(wsMux))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("websocket server starting", zap.String("port", cfg.WSPort))
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("http server starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.AppEnv),
			zap.String("audit_log", cfg.AuditLog),
			zap.Bool("rate_limit", cfg.RateLimitEnabled))
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		hub.Close()
		var errs []error
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("websocket shutdown: %w", err))
		}
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return
	}
	log.Info("server stopped")
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// originPatterns turns CORS origins into the host patterns websocket.Accept expects.
func originPatterns(origins string) []string {
	var out []string
	for _, o := range splitOrigins(origins) {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
