// Package cli implements the harbor command line interface.
package cli

import (
	chatCommands "github.com/harborchat/harbor/internal/chat/application/commands"
	"github.com/harborchat/harbor/internal/scheduling/application/commands"
	"github.com/harborchat/harbor/internal/scheduling/application/queries"
	"github.com/google/uuid"
)

// App holds the CLI application dependencies.
type App struct {
	// Chat
	SendMessageHandler *chatCommands.SendMessageHandler

	// Scheduling
	ConfirmSuggestionHandler *commands.ConfirmSuggestionHandler
	DismissSuggestionHandler *commands.DismissSuggestionHandler
	GetSuggestionHandler     *queries.GetSuggestionHandler
	ListSuggestionsHandler   *queries.ListSuggestionsHandler

	// Current user (configured per environment)
	CurrentUserID uuid.UUID
}

var app *App

// SetApp sets the global CLI application.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application.
func GetApp() *App {
	return app
}
