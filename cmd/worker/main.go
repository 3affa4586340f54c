package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/atento-labs/callaudit/analysis"
	"github.com/atento-labs/callaudit/config"
	"github.com/atento-labs/callaudit/guard"
	"github.com/atento-labs/callaudit/logging"
	"github.com/atento-labs/callaudit/notify"
	"github.com/atento-labs/callaudit/pipeline"
	"github.com/atento-labs/callaudit/queue"
	"github.com/atento-labs/callaudit/retry"
	"github.com/atento-labs/callaudit/routes"
	"github.com/atento-labs/callaudit/stats"
	"github.com/atento-labs/callaudit/storage"
	"github.com/atento-labs/callaudit/worker"
)

const logRingSize = 100

func main() {
	cfg := config.Load()

	ring := logging.NewRingHook(logRingSize)
	log := logging.New(ring)

	collector := stats.NewCollector()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	routes.Register(app, routes.Config{Stats: collector, Logs: ring})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The listener binds before any dependency is dialed so the health
	// endpoint can report partial startup instead of connection refused.
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("http listener failed")
		}
	}()
	log.WithField("port", cfg.Port).Info("http listener started")

	// The init goroutine publishes the handles it opens through deps so
	// the shutdown path never reads them mid-write.
	var deps struct {
		mu       sync.Mutex
		consumer queue.Consumer
		store    storage.Store
	}

	go func() {
		store, err := storage.CreateStore(cfg.StoreURL)
		if err != nil {
			log.WithError(err).Error("store initialization failed")
			collector.SetComponent(stats.ComponentStore, stats.StatusError, err.Error())
			return
		}
		deps.mu.Lock()
		deps.store = store
		deps.mu.Unlock()
		collector.SetComponent(stats.ComponentStore, stats.StatusHealthy, "")
		log.Info("store connected")
		go pingLoop(ctx, store, collector, log)

		tracker, err := retry.CreateTracker(cfg.RetryTrackerURL)
		if err != nil {
			log.WithError(err).Warn("retry tracker unavailable, using in-memory counts")
			tracker = retry.NewMemoryTracker()
		}

		gemini, err := analysis.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.WithError(err).Error("gemini initialization failed")
			collector.SetComponent(stats.ComponentAI, stats.StatusError, err.Error())
			return
		}

		var secondary analysis.Analyzer
		if cfg.AnthropicAPIKey != "" {
			claude, err := analysis.NewClaudeAnalyzer(cfg.AnthropicAPIKey, cfg.AnthropicModel, log)
			if err != nil {
				log.WithError(err).Warn("secondary analyzer unavailable, cross-validation disabled")
			} else {
				secondary = claude
			}
		} else {
			log.Info("no anthropic key configured, cross-validation disabled")
		}
		collector.SetComponent(stats.ComponentAI, stats.StatusHealthy, "")

		orchestrator := pipeline.New(pipeline.Options{
			Transcriber: gemini,
			Primary:     gemini,
			Secondary:   secondary,
			MaxAttempts: cfg.StageMaxAttempts,
			BaseDelay:   cfg.StageBaseDelay,
			Language:    cfg.LanguageCode,
			Log:         log,
		})

		w := worker.New(worker.Options{
			Guard:         guard.New(store),
			Pipeline:      orchestrator,
			Store:         store,
			Tracker:       tracker,
			Notifier:      notify.New(cfg.NotifyURL, log),
			Stats:         collector,
			Log:           log,
			MaxRetries:    cfg.MaxRetries,
			BaseNackDelay: cfg.BaseNackDelay,
			DefaultBucket: cfg.BucketName,
		})

		consumer, err := queue.CreateConsumer(queue.AMQPConfig{
			URL:                cfg.QueueURL,
			QueueName:          cfg.QueueName,
			DeadLetterExchange: cfg.DeadLetterExchange,
			Prefetch:           cfg.Prefetch,
		}, log)
		if err != nil {
			log.WithError(err).Error("queue initialization failed")
			collector.SetComponent(stats.ComponentQueue, stats.StatusError, err.Error())
			return
		}
		deps.mu.Lock()
		deps.consumer = consumer
		deps.mu.Unlock()
		collector.SetComponent(stats.ComponentQueue, stats.StatusHealthy, "")
		log.WithField("queue", cfg.QueueName).Info("consuming messages")

		if err := consumer.Start(ctx, w.Handle); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("consumer stopped")
			collector.SetComponent(stats.ComponentQueue, stats.StatusError, err.Error())
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	deps.mu.Lock()
	consumer, store := deps.consumer, deps.store
	deps.mu.Unlock()

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.WithError(err).Warn("consumer close failed")
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("store close failed")
		}
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Warn("http shutdown failed")
	}
	os.Exit(0)
}

// pingLoop keeps the store's component status current so the health
// endpoint never has to dial anything.
func pingLoop(ctx context.Context, store storage.Store, collector *stats.Collector, log *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := store.Ping(pingCtx)
			cancel()
			if err != nil {
				log.WithError(err).Warn("store ping failed")
				collector.SetComponent(stats.ComponentStore, stats.StatusError, err.Error())
			} else {
				collector.SetComponent(stats.ComponentStore, stats.StatusHealthy, "")
			}
		}
	}
}
