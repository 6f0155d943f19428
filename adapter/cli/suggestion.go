package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/harborchat/harbor/internal/scheduling/application/commands"
	"github.com/harborchat/harbor/internal/scheduling/application/queries"
	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var includeStale bool

var suggestionCmd = &cobra.Command{
	Use:   "suggestion",
	Short: "Inspect and act on meeting suggestions",
}

var suggestionListCmd = &cobra.Command{
	Use:   "list <conversation-id>",
	Short: "List meeting suggestions of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.ListSuggestionsHandler == nil {
			return fmt.Errorf("suggestion commands require a configured database")
		}

		conversationID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid conversation id: %w", err)
		}

		suggestions, err := app.ListSuggestionsHandler.Handle(cmd.Context(), queries.ListSuggestionsQuery{
			ConversationID: conversationID,
			IncludeStale:   includeStale,
		})
		if err != nil {
			return err
		}
		if len(suggestions) == 0 {
			fmt.Println("No suggestions.")
			return nil
		}

		for _, s := range suggestions {
			printSuggestion(s)
			fmt.Println()
		}
		return nil
	},
}

var suggestionShowCmd = &cobra.Command{
	Use:   "show <suggestion-id>",
	Short: "Show one suggestion with its candidate slots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.GetSuggestionHandler == nil {
			return fmt.Errorf("suggestion commands require a configured database")
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid suggestion id: %w", err)
		}

		suggestion, err := app.GetSuggestionHandler.Handle(cmd.Context(), queries.GetSuggestionQuery{SuggestionID: id})
		if err != nil {
			return err
		}
		printSuggestion(suggestion)
		return nil
	},
}

var suggestionConfirmCmd = &cobra.Command{
	Use:   "confirm <suggestion-id> <slot-number>",
	Short: "Confirm a suggestion with one of its offered slots",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.ConfirmSuggestionHandler == nil {
			return fmt.Errorf("suggestion commands require a configured database")
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid suggestion id: %w", err)
		}
		slotNumber, err := strconv.Atoi(args[1])
		if err != nil || slotNumber < 1 {
			return fmt.Errorf("slot number must be a positive integer")
		}

		suggestion, err := app.GetSuggestionHandler.Handle(cmd.Context(), queries.GetSuggestionQuery{SuggestionID: id})
		if err != nil {
			return err
		}
		slots := suggestion.SuggestedSlots()
		if slotNumber > len(slots) {
			return fmt.Errorf("suggestion offers %d slot(s)", len(slots))
		}

		err = app.ConfirmSuggestionHandler.Handle(cmd.Context(), commands.ConfirmSuggestionCommand{
			SuggestionID: id,
			UserID:       app.CurrentUserID,
			Slot:         slots[slotNumber-1],
		})
		if err != nil {
			return err
		}

		fmt.Printf("Confirmed. Meeting announced in #%s.\n", suggestion.ConversationName())
		return nil
	},
}

var suggestionDismissCmd = &cobra.Command{
	Use:   "dismiss <suggestion-id>",
	Short: "Dismiss a suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.DismissSuggestionHandler == nil {
			return fmt.Errorf("suggestion commands require a configured database")
		}

		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid suggestion id: %w", err)
		}

		err = app.DismissSuggestionHandler.Handle(cmd.Context(), commands.DismissSuggestionCommand{
			SuggestionID: id,
			UserID:       app.CurrentUserID,
		})
		if err != nil {
			return err
		}

		fmt.Println("Dismissed.")
		return nil
	},
}

func printSuggestion(s *domain.Suggestion) {
	fmt.Printf("%s  [%s]\n", s.ID(), s.Status())
	fmt.Printf("  Conversation: %s\n", s.ConversationName())
	if s.Purpose() != "" {
		fmt.Printf("  Purpose:      %s\n", s.Purpose())
	}
	fmt.Printf("  Urgency:      %s (confidence %.2f)\n", s.Urgency(), s.Confidence())
	fmt.Printf("  Created:      %s\n", s.CreatedAt().Local().Format(time.RFC822))

	if slot := s.AcceptedSlot(); slot != nil {
		fmt.Printf("  Accepted:     %s (%d min)\n",
			slot.Start.Local().Format("Mon, Jan 2 at 3:04 PM"),
			int(slot.Duration.Minutes()),
		)
		return
	}

	slots := s.SuggestedSlots()
	if len(slots) == 0 {
		fmt.Println("  Slots:        none found across participant timezones")
		return
	}
	fmt.Println("  Slots:")
	for i, slot := range slots {
		fmt.Printf("    %d. %s (%d min)\n", i+1,
			slot.Start.Local().Format("Mon, Jan 2 at 3:04 PM"),
			int(slot.Duration.Minutes()),
		)
	}
}

func init() {
	suggestionListCmd.Flags().BoolVar(&includeStale, "stale", false, "include suggestions older than 48h")
	suggestionCmd.AddCommand(suggestionListCmd)
	suggestionCmd.AddCommand(suggestionShowCmd)
	suggestionCmd.AddCommand(suggestionConfirmCmd)
	suggestionCmd.AddCommand(suggestionDismissCmd)
	rootCmd.AddCommand(suggestionCmd)
}
