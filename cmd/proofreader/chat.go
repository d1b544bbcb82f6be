package main

import (
	"github.com/aretw0/proofreader/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive proofreading chat",
	Long: `Opens a chat in the terminal. Paste a text to get its mistakes listed, then
answer yes to receive the corrected version.

Use --session to keep the conversation in the configured store and resume it later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		headless, _ := cmd.Flags().GetBool("headless")
		jsonMode, _ := cmd.Flags().GetBool("json")
		debug, _ := cmd.Flags().GetBool("debug")
		fresh, _ := cmd.Flags().GetBool("fresh")

		return cli.RunChat(cfg, cli.ChatOptions{
			SessionID: sessionID,
			Headless:  headless,
			JSON:      jsonMode,
			Debug:     debug,
			Fresh:     fresh,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("session", "s", "", "Session ID to create or resume")
	chatCmd.Flags().Bool("headless", false, "Plain text IO without banner or markdown rendering")
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	chatCmd.Flags().Bool("debug", false, "Log every turn and model call to stderr")
	chatCmd.Flags().Bool("fresh", false, "Clear the session before starting")

	// chat is the default command.
	rootCmd.RunE = chatCmd.RunE
	rootCmd.Flags().AddFlagSet(chatCmd.Flags())
}
