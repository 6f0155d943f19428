package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/harborchat/harbor/adapter/cli"
	chatCommands "github.com/harborchat/harbor/internal/chat/application/commands"
	chatPersistence "github.com/harborchat/harbor/internal/chat/infrastructure/persistence"
	"github.com/harborchat/harbor/internal/chat/infrastructure/profile"
	"github.com/harborchat/harbor/internal/scheduling/application/commands"
	"github.com/harborchat/harbor/internal/scheduling/application/queries"
	"github.com/harborchat/harbor/internal/scheduling/application/services"
	"github.com/harborchat/harbor/internal/scheduling/application/subscribers"
	"github.com/harborchat/harbor/internal/scheduling/infrastructure/completion"
	"github.com/harborchat/harbor/internal/scheduling/infrastructure/persistence"
	"github.com/harborchat/harbor/internal/shared/infrastructure/eventbus"
	"github.com/harborchat/harbor/internal/shared/infrastructure/migrations"
	"github.com/harborchat/harbor/pkg/config"
	"github.com/harborchat/harbor/pkg/observability"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// main wires the local single-binary mode: SQLite storage and a synchronous
// in-process event bus, so a sent message runs the scheduling pipeline
// before the command returns.
func main() {
	logger := observability.LoggerFromEnv()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := migrations.RunSQLite(ctx, db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Repositories
	conversations := chatPersistence.NewSQLiteConversationRepository(db)
	messages := chatPersistence.NewSQLiteMessageRepository(db)
	profiles := chatPersistence.NewSQLiteProfileRepository(db)
	suggestions := persistence.NewSQLiteSuggestionRepository(db)

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

	generatorConfig := services.DefaultSlotGeneratorConfig()
	generatorConfig.DefaultZone = cfg.DefaultTimezone
	generatorConfig.ReferenceZone = cfg.ReferenceTimezone
	generator := services.NewTimeSlotGenerator(profile.NewStore(profiles), generatorConfig, logger)

	// Local mode dispatches events synchronously in-process
	bus := eventbus.NewInProcessEventBus(logger)
	bus.RegisterConsumer(subscribers.NewMessageSubscriber(
		suggestions, conversations, messages,
		detector, generator, bus,
		subscribers.MessageSubscriberConfig{
			ConfidenceThreshold: cfg.DetectionConfidenceThreshold,
			ContextMessages:     cfg.DetectionContextMessages,
			SlotDuration:        cfg.DefaultSlotDuration,
		},
		logger,
	))

	cli.SetApp(&cli.App{
		SendMessageHandler:       chatCommands.NewSendMessageHandler(conversations, messages, bus, logger),
		ConfirmSuggestionHandler: commands.NewConfirmSuggestionHandler(suggestions, conversations, messages, bus, logger),
		DismissSuggestionHandler: commands.NewDismissSuggestionHandler(suggestions, bus, logger),
		GetSuggestionHandler:     queries.NewGetSuggestionHandler(suggestions),
		ListSuggestionsHandler:   queries.NewListSuggestionsHandler(suggestions),
		CurrentUserID:            currentUserID(),
	})

	cli.Execute()
}

// currentUserID reads the acting user from the environment. Local mode has
// no authentication; each invocation states who it is.
func currentUserID() uuid.UUID {
	if raw := os.Getenv("HARBOR_USER_ID"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}
