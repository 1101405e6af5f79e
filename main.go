package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tenantly/authweb/handlers"
	activitysvc "github.com/tenantly/authweb/internal/activity/service"
	"github.com/tenantly/authweb/internal/apiclient"
	"github.com/tenantly/authweb/internal/config"
	"github.com/tenantly/authweb/internal/database"
	"github.com/tenantly/authweb/internal/sessions"
	"github.com/tenantly/authweb/internal/users"
	"github.com/tenantly/authweb/pkg/logger"
	"github.com/tenantly/authweb/pkg/metrics"
	"github.com/tenantly/authweb/pkg/middleware"
	"github.com/tenantly/authweb/web"
)

const connectAttempts = 5

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "authweb",
		Short: "Web front end for the multi-tenant authentication API",
		Long: `authweb serves the sign-in, registration, profile and password pages of a
multi-tenant authentication API and keeps the browser session in a signed cookie.

Configuration comes from the environment (optionally loaded from --env-file).`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error (overrides LOG_LEVEL)")
	_ = viper.BindPFlag("LOG_LEVEL", rootCmd.PersistentFlags().Lookup("log-level"))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Debugf("log level %s", logger.LevelString())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: api=%s mongo=%v redis=%v env=%s", cfg.API.BaseURL, cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Server.Environment)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := apiclient.NewClient(cfg.API.BaseURL, apiclient.WithTimeout(cfg.API.Timeout))
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}
	checks := map[string]handlers.Check{"api": client.Health}

	// Redis backs session revocation and the shared rate limiter when configured
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		opts := &redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		rdb, err = database.ConnectRedis(ctx, opts, connectAttempts)
		if err != nil {
			logger.Warnf("continuing without Redis: %v", err)
		} else {
			defer func() { _ = rdb.Close() }()
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			logger.Infof("connected to Redis at %s", opts.Addr)
		}
	}

	var revoker sessions.Revoker
	activity := activitysvc.NewMemoryService()
	if cfg.MongoDB.URI != "" {
		mc, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, connectAttempts)
		if err != nil {
			logger.Warnf("continuing without MongoDB: %v", err)
		} else {
			defer func() { _ = mc.Disconnect(context.Background()) }()
			db := mc.Database(cfg.MongoDB.Database)
			checks["mongodb"] = func(ctx context.Context) error { return mc.Ping(ctx, nil) }

			if svc, err := activitysvc.NewMongoService(ctx, db.Collection("activity")); err != nil {
				logger.Warnf("activity log stays in memory: %v", err)
			} else {
				activity = svc
			}
			if rdb == nil {
				mr := sessions.NewMongoRevoker(db.Collection("revoked_sessions"))
				if err := mr.EnsureIndexes(ctx); err != nil {
					logger.Warnf("revoked_sessions indexes: %v", err)
				}
				revoker = mr
			}
		}
	}
	if rdb != nil {
		revoker = sessions.NewRedisRevoker(rdb, "")
	}
	if revoker == nil {
		logger.Warnf("session revocation is kept in memory and is not shared between instances")
		revoker = sessions.NewMemoryRevoker()
	}

	store := sessions.NewCookieStore([]byte(cfg.Session.Secret), sessions.CookieOptions{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.Secure,
	})
	manager := sessions.NewManager(client, store, sessions.WithRevoker(revoker), sessions.WithMaxAge(cfg.Session.MaxAge))

	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := handlers.NewRouter(handlers.Deps{
		Sessions: manager,
		Users:    users.NewService(client),
		Activity: activity,
		Renderer: renderer,
		Limit:    rateLimiter(cfg.RateLimit, rdb),
		Checks:   checks,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// rateLimiter returns the per-route limiter factory used for form submissions.
func rateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) func(route string) gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	return func(route string) gin.HandlerFunc {
		if cfg.UseRedis && rdb != nil {
			window := time.Duration(cfg.WindowSeconds) * time.Second
			return middleware.RedisRateLimitMiddleware(rdb, route, cfg.RPS, cfg.Burst, window)
		}
		return middleware.RateLimitMiddleware(cfg.RPS, cfg.Burst)
	}
}
