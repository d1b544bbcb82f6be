package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/proofreader/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the proofreading conversation over HTTP:

  POST   /sessions                 create a session
  GET    /sessions                 list sessions
  GET    /sessions/{id}            read a session
  POST   /sessions/{id}/messages   submit a message
  POST   /sessions/{id}/reset      clear the conversation
  DELETE /sessions/{id}            delete a session
  GET    /sessions/{id}/events     stream transcript changes (SSE)
  GET    /health, /info, /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd, false)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}

		ln, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := cli.Serve(ctx, cfg, ln, logger); err != nil {
			return err
		}
		logger.Info("Proofreader server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
