package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/proofreader/internal/cli"
	"github.com/aretw0/proofreader/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "proofreader",
	Short: "Proofreader is a grammar and spelling assistant backed by an LLM",
	Long: `Proofreader finds grammar, spelling and verb tense mistakes in your text and,
if you ask for it, writes an error-free version.

Run it as an interactive chat, an HTTP API or an MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	addConfigFlags(rootCmd.PersistentFlags())
}

func addConfigFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to proofreader.yaml")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.String("log-format", "", "Log format: text or json")
	fs.String("provider", "", "Model provider (gemini, openai, anthropic, ollama, ...)")
	fs.String("model", "", "Model name")
	fs.String("store", "", "Session store: memory, file or redis")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("provider") {
		cfg.Provider.Name, _ = flags.GetString("provider")
	}
	if flags.Changed("model") {
		cfg.Provider.Model, _ = flags.GetString("model")
	}
	if flags.Changed("store") {
		cfg.Store.Type, _ = flags.GetString("store")
	}
	return cfg, config.Validate(cfg)
}

// setup loads the config and builds the logger.
func setup(cmd *cobra.Command, debug bool) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cli.NewLogger(cfg.Log, debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
