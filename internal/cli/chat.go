package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/proofreader"
	"github.com/aretw0/proofreader/internal/config"
	"github.com/aretw0/proofreader/internal/presentation/tui"
	"github.com/aretw0/proofreader/pkg/runner"
	"golang.org/x/term"
)

// ChatOptions contains all the configuration for the chat command.
type ChatOptions struct {
	SessionID string
	Headless  bool
	JSON      bool
	Debug     bool
	// Fresh resets the named session before chatting.
	Fresh bool
}

// RunChat runs one interactive proofreading chat on stdin/stdout.
func RunChat(cfg *config.Config, opts ChatOptions) error {
	logger, err := NewLogger(cfg.Log, opts.Debug)
	if err != nil {
		return err
	}
	interactive := !opts.JSON && !opts.Headless

	if NeedsAPIKey(cfg.Provider) {
		key, err := PromptAPIKey(os.Stdin, os.Stderr, providerName(cfg.Provider))
		if err != nil {
			return err
		}
		cfg.Provider.APIKey = key
	}

	generator, err := NewGenerator(cfg.Provider)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	backend, err := NewBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	engine, err := NewEngine(cfg, EngineOptions{
		Generator: generator,
		Backend:   backend,
		Logger:    logger,
		LogTurns:  opts.Debug,
	})
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if opts.Fresh && opts.SessionID != "" {
		if _, err := engine.Reset(sigCtx, opts.SessionID); err != nil {
			return fmt.Errorf("failed to reset session %s: %w", opts.SessionID, err)
		}
	}

	if interactive {
		tui.PrintBanner(os.Stdout, proofreader.Version)
	}

	r := runner.NewRunner(engine,
		runner.WithLogger(logger),
		runner.WithSessionID(opts.SessionID),
		runner.WithHeadless(!interactive),
		runner.WithWelcome(tui.Welcome),
		runner.WithInputHandler(newHandler(opts)),
	)
	runErr := r.Run(sigCtx)

	if interactive {
		logCompletion(os.Stdout, r.SessionID, cfg.Store.Type != config.StoreMemory, sigCtx.Signal())
	}
	return handleExecutionError(runErr)
}

func newHandler(opts ChatOptions) runner.IOHandler {
	if opts.JSON {
		return runner.NewJSONHandler(os.Stdin, os.Stdout)
	}

	var handlerOpts []runner.TextHandlerOption
	if !opts.Headless && IsTerminal(os.Stdout) {
		width := 0
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 4 {
			width = w - 4
		}
		handlerOpts = append(handlerOpts,
			runner.WithTextHandlerRenderer(tui.NewRenderer(width)),
			runner.WithTextHandlerErrorStyle(tui.ErrorStyle(os.Stdout)),
		)
	}
	return runner.NewTextHandler(os.Stdin, os.Stdout, handlerOpts...)
}
