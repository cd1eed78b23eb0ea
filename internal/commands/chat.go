// internal/commands/chat.go
package skycast

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mvenner/skycast/cli"
)

// startGUI is a function alias to cli.StartGUI for starting the chat interface.
var startGUI = cli.StartGUI

// chatCmd represents the 'chat' command, which starts an interactive chat session.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long:  `The 'chat' command starts an interactive chat session with a large language model, with the weather tools available for function calling.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		startGUI(ctx, GetConfig(), cancel)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
