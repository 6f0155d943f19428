package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatDomain "github.com/harborchat/harbor/internal/chat/domain"
	chatPersistence "github.com/harborchat/harbor/internal/chat/infrastructure/persistence"
	"github.com/harborchat/harbor/internal/chat/infrastructure/profile"
	"github.com/harborchat/harbor/internal/scheduling/application/services"
	"github.com/harborchat/harbor/internal/scheduling/application/subscribers"
	schedulingDomain "github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/harborchat/harbor/internal/scheduling/infrastructure/completion"
	"github.com/harborchat/harbor/internal/scheduling/infrastructure/persistence"
	"github.com/harborchat/harbor/internal/shared/infrastructure/eventbus"
	"github.com/harborchat/harbor/internal/shared/infrastructure/migrations"
	"github.com/harborchat/harbor/pkg/config"
	"github.com/harborchat/harbor/pkg/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// The worker consumes chat.message.created from RabbitMQ and runs the
// scheduling pipeline in the background, off the message write path.
func main() {
	logger := observability.LoggerFromEnv()
	logger.Info("starting harbor scheduling worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	repos, cleanup, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Event publisher for suggestion lifecycle events
	var publisher eventbus.Publisher
	rabbitPublisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			publisher = eventbus.NewNoopPublisher(logger)
		} else {
			logger.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
	} else {
		publisher = rabbitPublisher
		defer rabbitPublisher.Close()
	}

	// Scheduling services
	completions := completion.NewOpenAIClient(completion.Config{
		BaseURL: cfg.CompletionBaseURL,
		APIKey:  cfg.CompletionAPIKey,
		Model:   cfg.CompletionModel,
		Timeout: cfg.CompletionTimeout,
	}, logger)
	detector := services.NewSchedulingDetector(completions, services.DetectorConfig{
		Timeout:         cfg.CompletionTimeout,
		ContextMessages: cfg.DetectionContextMessages,
	}, logger)

	resolver := buildTimezoneResolver(ctx, cfg, repos.profiles, logger)
	generatorConfig := services.DefaultSlotGeneratorConfig()
	generatorConfig.DefaultZone = cfg.DefaultTimezone
	generatorConfig.ReferenceZone = cfg.ReferenceTimezone
	generator := services.NewTimeSlotGenerator(resolver, generatorConfig, logger)

	subscriber := subscribers.NewMessageSubscriber(
		repos.suggestions, repos.conversations, repos.messages,
		detector, generator, publisher,
		subscribers.MessageSubscriberConfig{
			ConfidenceThreshold: cfg.DetectionConfidenceThreshold,
			ContextMessages:     cfg.DetectionContextMessages,
			SlotDuration:        cfg.DefaultSlotDuration,
		},
		logger,
	)

	registry := eventbus.NewConsumerRegistry(logger)
	consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:       cfg.RabbitMQURL,
		QueueName: cfg.WorkerQueueName,
		Logger:    logger,
	}, registry)
	if err != nil {
		logger.Error("failed to connect consumer to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()
	consumer.RegisterConsumer(subscriber)

	go serveHealth(ctx, cfg.WorkerHealthAddr, logger)

	logger.Info("worker consuming",
		"queue", cfg.WorkerQueueName,
		"confidence_threshold", cfg.DetectionConfidenceThreshold,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

type repositories struct {
	conversations chatDomain.ConversationRepository
	messages      chatDomain.MessageRepository
	profiles      chatDomain.ProfileRepository
	suggestions   schedulingDomain.SuggestionRepository
}

// buildRepositories connects Postgres when DATABASE_URL is set, falling back
// to SQLite for local deployments.
func buildRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, func(), error) {
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		return &repositories{
			conversations: chatPersistence.NewPostgresConversationRepository(pool),
			messages:      chatPersistence.NewPostgresMessageRepository(pool),
			profiles:      chatPersistence.NewPostgresProfileRepository(pool),
			suggestions:   persistence.NewPostgresSuggestionRepository(pool),
		}, pool.Close, nil
	}

	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(1)
	if err := migrations.RunSQLite(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("using sqlite storage", "path", cfg.SQLitePath)
	return &repositories{
		conversations: chatPersistence.NewSQLiteConversationRepository(db),
		messages:      chatPersistence.NewSQLiteMessageRepository(db),
		profiles:      chatPersistence.NewSQLiteProfileRepository(db),
		suggestions:   persistence.NewSQLiteSuggestionRepository(db),
	}, func() { db.Close() }, nil
}

// buildTimezoneResolver layers a Redis cache over the profile store when
// Redis is reachable.
func buildTimezoneResolver(ctx context.Context, cfg *config.Config, profiles chatDomain.ProfileRepository, logger *slog.Logger) services.TimezoneResolver {
	store := profile.NewStore(profiles)

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("invalid redis url, timezone cache disabled", "error", err)
		return store
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, timezone cache disabled", "error", err)
		return store
	}
	logger.Info("timezone cache enabled")
	return profile.NewCachedStore(store, profile.NewRedisCache(client), profile.DefaultCacheTTL, logger)
}

// serveHealth exposes liveness for the orchestrator.
func serveHealth(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("health endpoint listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("health endpoint failed", "error", err)
	}
}
