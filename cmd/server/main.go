package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/arhyth/ledgerxgo"
	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfp := flag.String("config", "config.yml", "path to configuration file")
	fixture := flag.String("fixture", filepath.Join("testdata", "seed.yml"), "seed fixture for the in-memory store")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Fatal().Err(err).Msg("error loading .env")
	}
	cfg, err := ledgerxgo.LoadConfig(*cfp)
	if err != nil {
		logger.Fatal().Err(err).Msg("error loading config file")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	node, err := snowflake.NewNode(cfg.Node)
	if err != nil {
		logger.Fatal().Err(err).Msg("error creating id node")
	}

	var (
		repo   ledgerxgo.Repository
		audits ledgerxgo.AuditRepository
	)
	if cfg.Database.ConnectionString != "" {
		pgendpt, err := ledgerxgo.NewPostgresEndpoint(cfg.Database.ConnectionString, node, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("error starting database")
		}
		defer pgendpt.Close()
		repo, audits = pgendpt, pgendpt
	} else {
		logger.Warn().Msg("no database configured, using in-memory store")
		mem := ledgerxgo.NewMemStore(node)
		fx, err := ledgerxgo.LoadFixture(*fixture)
		if err != nil {
			logger.Fatal().Err(err).Msg("error loading fixture")
		}
		if err = fx.SeedMemStore(context.Background(), mem); err != nil {
			logger.Fatal().Err(err).Msg("error seeding in-memory store")
		}
		repo, audits = mem, mem
	}

	sink, closeSink, err := newNotifier(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("error starting notification sink")
	}
	defer closeSink()

	svc := ledgerxgo.NewService(repo, audits, sink, cfg, &logger)
	chained := ledgerxgo.Chain(svc,
		ledgerxgo.NewValidationMiddleware(),
		ledgerxgo.NewLimitMiddleware(ledgerxgo.NewServiceLimits(cfg.Limits.Concurrency), cfg.Limits.AcquireTimeout),
		ledgerxgo.NewCircuitBreakMiddleware(ledgerxgo.NewServiceBreaker(&logger)),
	)

	if cfg.Audit.Schedule != "" {
		sched := cron.New()
		_, err = sched.AddFunc(cfg.Audit.Schedule, func() {
			if _, err := svc.Reconciler().Run(context.Background()); err != nil {
				logger.Err(err).Msg("scheduled audit reconciliation failed")
			}
		})
		if err != nil {
			logger.Fatal().Err(err).Str("schedule", cfg.Audit.Schedule).Msg("error scheduling audit reconciliation")
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           ledgerxgo.NewHTTPHandler(chained, &logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Err(err).Msg("error shutting down server")
	}
}

// newNotifier builds the configured sink behind a circuit breaker and a queue.
// The returned func drains the queue and closes the sink.
func newNotifier(cfg *ledgerxgo.Config, logger *zerolog.Logger) (ledgerxgo.Notifier, func(), error) {
	var (
		sink    ledgerxgo.Notifier
		closers []func()
	)
	switch cfg.Notifications.Sink {
	case ledgerxgo.SinkPDF:
		pdf, err := ledgerxgo.NewPDFReceiptNotifier(cfg.Notifications.ReceiptDir)
		if err != nil {
			return nil, nil, err
		}
		sink = pdf
	case ledgerxgo.SinkAMQP:
		amqp, err := ledgerxgo.NewAMQPNotifier(cfg.Notifications.AMQPURL, cfg.Notifications.Exchange)
		if err != nil {
			return nil, nil, err
		}
		sink = amqp
		closers = append(closers, func() {
			if err := amqp.Close(); err != nil {
				logger.Err(err).Msg("error closing amqp notifier")
			}
		})
	default:
		return ledgerxgo.NopNotifier{}, func() {}, nil
	}

	queue := ledgerxgo.NewQueuedNotifier(ledgerxgo.NewBreakerNotifier(sink, logger), cfg.Notifications.QueueSize, logger)
	closeAll := func() {
		queue.Close()
		for _, c := range closers {
			c()
		}
	}
	return queue, closeAll, nil
}
