package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	chclient "argus/internal/adapters/clickhouse"
	"argus/internal/adapters/config"
	"argus/internal/adapters/errors/noop"
	"argus/internal/adapters/errors/sentry"
	"argus/internal/adapters/kafka"
	pgclient "argus/internal/adapters/postgres"
	redisclient "argus/internal/adapters/redis"
	"argus/internal/domain/instrument_metrics"
	"argus/internal/domain/quotes"
	"argus/internal/domain/results"
	"argus/internal/engine"
	"argus/internal/events"
	"argus/internal/metrics"
	chrepo "argus/internal/repository/clickhouse"
	pgrepo "argus/internal/repository/postgres"
	"argus/internal/repository/rediscache"
	"argus/internal/workers"
	"argus/internal/workers/analysis"
	"argus/pkg/errors"
	"argus/pkg/logger"
	"argus/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Stores: acquired here, released at shutdown, never opened inside
	// business logic
	pg, err := pgclient.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pg.Close()

	ch, err := chclient.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("clickhouse: %v", err)
	}
	defer ch.Close()

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	startMetricsServer(cfg.App.MetricsAddr, log)

	policy := retry.NewPolicy(retry.Config{
		MaxAttempts:    cfg.Engine.StoreMaxAttempts,
		AttemptTimeout: cfg.Engine.StoreTimeout,
		OnRetry:        func(string) { recorder.StoreRetry() },
	}, log)
	limiter := rate.NewLimiter(rate.Limit(cfg.Engine.StoreQueryRate), int(cfg.Engine.StoreQueryRate))

	var quoteRepo quotes.Repository = chrepo.NewQuoteRepository(ch.Conn(), policy, limiter)
	metricRepo := chrepo.NewInstrumentMetricRepository(ch.Conn(), policy, limiter)
	resultRepo := pgrepo.NewResultRepository(pg.DB())

	if cfg.Redis.Enabled {
		rds, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rds.Close()
		quoteRepo = rediscache.NewQuoteCache(quoteRepo, rds.Client(), cfg.Redis.QuoteTTL)
	}

	var publisher events.Publisher = events.NewNoopPublisher()
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()
		publisher = events.NewReductionPublisher(producer, cfg.Kafka.Topic)
	}

	assembler := engine.NewResultAssembler(resultRepo, publisher, recorder)
	eng := engine.New(quoteRepo, metricRepo, assembler, engineParams(cfg.Engine))

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(analysis.NewStrikeAnalysisWorker(eng, metricRepo, cfg.Engine, cfg.Workers, recorder))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	waitForShutdown(cancel, scheduler, errorTracker, log)
}

// engineParams maps env config onto engine parameters
func engineParams(cfg config.EngineConfig) engine.Params {
	params := engine.DefaultParams()
	if cfg.MetricType != "" {
		params.MetricType = instrument_metrics.MetricType(cfg.MetricType)
	}
	if cfg.StrikesPerClass > 0 {
		params.StrikesPerClass = cfg.StrikesPerClass
	}
	if len(cfg.OptionClasses) > 0 {
		classes := make([]quotes.OptionClass, 0, len(cfg.OptionClasses))
		for _, c := range cfg.OptionClasses {
			classes = append(classes, quotes.OptionClass(c))
		}
		params.OptionClasses = classes
	}
	if cfg.ThresholdPct > 0 {
		params.ThresholdPct = cfg.ThresholdPct
	}
	if cfg.ScanMode != "" {
		params.Mode = results.ScanMode(cfg.ScanMode)
	}
	return params
}

func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to init Sentry, falling back to no-op tracker: %v", err)
		return noop.New()
	}

	log.Info("Sentry error tracking enabled")
	return tracker
}

func startMetricsServer(addr string, log *logger.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		log.Infof("Metrics endpoint listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warnf("Metrics server stopped: %v", err)
		}
	}()
}

func waitForShutdown(cancel context.CancelFunc, scheduler *workers.Scheduler, tracker errors.Tracker, log *logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Infof("Received signal %v, shutting down", sig)

	cancel()
	if err := scheduler.Stop(); err != nil {
		log.Warnf("Scheduler shutdown: %v", err)
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := tracker.Flush(flushCtx); err != nil {
		log.Warnf("Error tracker flush: %v", err)
	}

	log.Info("Shutdown complete")
}
