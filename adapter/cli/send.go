package cli

import (
	"fmt"
	"strings"

	chatCommands "github.com/harborchat/harbor/internal/chat/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <conversation-id> <text>...",
	Short: "Send a message into a conversation",
	Long: `Send a message as the current user. If the message reads like a
meeting request, the scheduling assistant may follow up with a suggestion.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.SendMessageHandler == nil {
			return fmt.Errorf("send requires a configured database")
		}

		conversationID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid conversation id: %w", err)
		}

		message, err := app.SendMessageHandler.Handle(cmd.Context(), chatCommands.SendMessageCommand{
			ConversationID: conversationID,
			SenderID:       app.CurrentUserID,
			Text:           strings.Join(args[1:], " "),
		})
		if err != nil {
			return err
		}

		fmt.Printf("Sent %s\n", message.ID())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
