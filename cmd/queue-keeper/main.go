// Package main is the entry point for the queue-keeper store sync service.
// It initializes all components and starts the HTTP server and the queue poller.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"queue-keeper/internal/api"
	"queue-keeper/internal/banner"
	"queue-keeper/internal/config"
	"queue-keeper/internal/deadletter"
	"queue-keeper/internal/emitter"
	"queue-keeper/internal/processor"
	"queue-keeper/internal/queue"
	kafkaqueue "queue-keeper/internal/queue/kafka"
	memoryqueue "queue-keeper/internal/queue/memory"
	sqsqueue "queue-keeper/internal/queue/sqs"
	"queue-keeper/internal/seed"
	"queue-keeper/internal/store"
	memorystor "queue-keeper/internal/store/memory"
	postgresstor "queue-keeper/internal/store/postgres"
	redisstor "queue-keeper/internal/store/redis"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	banner.Print(os.Stdout, "Store Queue Sync")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		initLogger(config.LoggerConfig{Format: "json"}).Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.Logger)

	logger.Info("configuration loaded",
		"path", *configPath,
		"environment", cfg.Environment,
		"storage_mode", cfg.Storage.Mode,
		"queue_driver", cfg.Queue.Driver,
	)

	// Create context that listens for shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize dependencies based on storage mode
	deps, cleanup, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Start poller in background
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		_ = deps.poller.Run(ctx)
	}()

	// Start HTTP server
	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("queue-keeper started",
		"address", cfg.Server.Address(),
		"storage_mode", cfg.Storage.Mode,
	)

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	select {
	case <-pollerDone:
	case <-shutdownCtx.Done():
		logger.Warn("poller did not stop before the shutdown deadline")
	}

	logger.Info("queue-keeper stopped")
}

// dependencies holds all initialized service dependencies.
type dependencies struct {
	server *api.Server
	poller *queue.Poller
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var (
		storeRepo    store.StoreRepository
		queueRepo    store.QueueRepository
		staticRepo   store.StaticRepository
		receiver     queue.Receiver
		deadLetter   queue.DeadLetterSink
		eventHandler *api.EventHandler
		cleanupFuncs []func()
	)

	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	if cfg.Storage.UseMemory() {
		// Initialize in-memory implementations
		logger.Info("initializing in-memory storage")

		memStatics := memorystor.NewStaticRepository()
		memStores := memorystor.NewStoreRepository()
		storeRepo = memStores
		staticRepo = memStatics
		queueRepo = memorystor.NewQueueRepository(memStores, memStatics)

		memQueue := memoryqueue.NewQueue(cfg.Queue.VisibilityTimeout)
		receiver = memQueue
		cleanupFuncs = append(cleanupFuncs, func() { _ = memQueue.Close() })

		// nothing outside the process can reach the queue, so publish over HTTP
		eventHandler = api.NewEventHandler(emitter.NewService(memQueue, logger), logger)

		if cfg.Queue.DeadLetter.Enabled {
			deadLetter = deadletter.NewLogSink(logger)
		}
	} else {
		// Initialize real storage implementations
		logger.Info("initializing production storage (PostgreSQL, Redis, " + string(cfg.Queue.Driver) + ")")

		// Initialize PostgreSQL
		db, err := postgresstor.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)

		// Run migrations
		if err := db.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("database migrations completed")

		storeRepo = postgresstor.NewStoreRepository(db)
		queueRepo = postgresstor.NewQueueRepository(db)

		// Initialize Redis
		redisClient, err := redisstor.NewClient(&cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisClient.Close() })
		staticRepo = redisstor.NewStaticCache(redisClient, postgresstor.NewStaticRepository(db), cfg.Redis.CacheTTL, logger)

		switch cfg.Queue.Driver {
		case config.QueueDriverKafka:
			republish := kafkaqueue.NewPublisher(kafkaqueue.NewWriter(&cfg.Kafka, cfg.Kafka.Topic))
			kafkaReceiver := kafkaqueue.NewReceiver(kafkaqueue.NewReader(&cfg.Kafka), republish, logger)
			receiver = kafkaReceiver
			cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaReceiver.Close() })

			if cfg.Queue.DeadLetter.Enabled {
				dlq := kafkaqueue.NewPublisher(kafkaqueue.NewWriter(&cfg.Kafka, cfg.Kafka.DeadLetterTopic))
				cleanupFuncs = append(cleanupFuncs, func() { _ = dlq.Close() })
				deadLetter = deadletter.NewPublisherSink(dlq, logger)
			}
		default:
			client, err := sqsqueue.NewClient(ctx, &cfg.SQS)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			receiver = sqsqueue.NewReceiver(client, cfg.SQS.QueueURL, logger)

			if cfg.Queue.DeadLetter.Enabled {
				deadLetter = deadletter.NewPublisherSink(sqsqueue.NewPublisher(client, cfg.SQS.DeadLetterURL), logger)
			}
		}
	}

	// Seed static lookups and, when asked, the fixture data
	if err := seed.Statics(ctx, staticRepo, logger); err != nil {
		cleanup()
		return nil, nil, err
	}
	if cfg.Seed.TestData {
		if err := seed.TestData(ctx, storeRepo, queueRepo, logger); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	// Initialize processor and poller
	service := processor.NewService(processor.NewApplier(storeRepo, logger), logger)
	poller := queue.NewPoller(receiver, service.HandleMessage, deadLetter, queue.PollerConfig{
		WaitTime:       cfg.Queue.WaitTime,
		PollInterval:   cfg.Queue.PollInterval,
		ProcessTimeout: cfg.Queue.ProcessTimeout,
		MaxReceives:    cfg.Queue.DeadLetter.MaxReceives,
	}, logger)

	// Initialize HTTP server
	server := api.NewServer(api.ServerDeps{
		Config:        &cfg.Server,
		Logger:        logger,
		ConfigHandler: api.NewConfigHandler(staticRepo, logger),
		QueueHandler:  api.NewQueueHandler(queueRepo, staticRepo, logger),
		EventHandler:  eventHandler,
	})

	return &dependencies{
		server: server,
		poller: poller,
	}, cleanup, nil
}

// initLogger creates and configures the application logger.
func initLogger(cfg config.LoggerConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
