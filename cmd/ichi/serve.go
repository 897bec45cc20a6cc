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

	"github.com/getsentry/sentry-go"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sdnyco/ichi/config"
	"github.com/sdnyco/ichi/internal/api"
	"github.com/sdnyco/ichi/internal/api/handler"
	"github.com/sdnyco/ichi/internal/cache"
	"github.com/sdnyco/ichi/internal/dayclock"
	"github.com/sdnyco/ichi/internal/events"
	"github.com/sdnyco/ichi/internal/metrics"
	"github.com/sdnyco/ichi/internal/notify"
	"github.com/sdnyco/ichi/internal/repository"
	"github.com/sdnyco/ichi/internal/service"
	"github.com/sdnyco/ichi/pkg/database"
	"github.com/sdnyco/ichi/pkg/logger"
	"github.com/sdnyco/ichi/pkg/tracing"
)

func newServeCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.App.Env}); err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	dev := cfg.DevOverrides()
	if dev != (config.DevOverrides{}) {
		logger.Warn("dev overrides active",
			zap.Bool("disable_rate_limits", dev.DisableRateLimits),
			zap.Bool("unique_day_keys", dev.UniqueDayKeys),
			zap.Int("max_recipients_ceiling", dev.MaxRecipientsCeiling),
		)
	}

	clock, err := dayclock.New(cfg.Ping.ReferenceTimeZone)
	if err != nil {
		return err
	}
	if dev.UniqueDayKeys {
		clock = clock.WithUniqueKeys()
	}

	var marker *cache.SentMarker
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, sent marker disabled", zap.Error(err))
		} else {
			marker = cache.NewSentMarker(client, cfg.Ping.SentMarkerTTL)
		}
	}

	var relay *service.EventRelay
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(cfg.NATS.URL, cfg.NATS.Subject, nats.Name("ichi"), nats.MaxReconnects(-1))
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer pub.Close()
		relay = service.NewEventRelay(pub, 1024)
		stopRelay := relay.Start(2)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = stopRelay(sctx)
		}()
	}

	dispatcher := service.NewDispatcher(db, clock, newTransport(cfg.Mail), service.DispatchOptions{
		MaxRecipients:     cfg.EffectiveMaxRecipients(),
		PublicBaseURL:     cfg.App.PublicBaseURL,
		DisableRateLimits: dev.DisableRateLimits,
		Marker:            marker,
		Metrics:           metrics.New(prometheus.DefaultRegisterer),
		Relay:             relay,
	})
	presence := service.NewPresenceService(
		repository.NewPlaceRepository(db),
		repository.NewCheckInRepository(db),
		repository.NewProfileRepository(db),
	)

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	h := handler.NewHandler(dispatcher, presence, sqlDB.PingContext)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(cfg, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newTransport(cfg config.MailConfig) notify.Transport {
	if cfg.Driver == "smtp" {
		return notify.NewSMTPTransport(cfg)
	}
	return notify.LogTransport{}
}
