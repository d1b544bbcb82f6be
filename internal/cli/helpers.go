package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/aretw0/proofreader/internal/config"
	"github.com/aretw0/proofreader/internal/logging"
	"golang.org/x/term"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger configures the application logger from the log section.
// debug forces the debug level. Logs go to stderr so stdout stays clean for
// the chat transcript and MCP JSON-RPC.
func NewLogger(c config.LogConfig, debug bool) (*slog.Logger, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	format := logging.FormatText
	if c.Format == config.LogFormatJSON {
		format = logging.FormatJSON
	}
	return logging.NewWithFormat(os.Stderr, level, format), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// PromptAPIKey asks for an API key on the terminal without echoing it.
// It refuses to prompt when in is not a terminal.
func PromptAPIKey(in *os.File, out io.Writer, provider string) (string, error) {
	if !IsTerminal(in) {
		return "", fmt.Errorf("no API key for %s: set it in the config file or %s", provider, config.EnvAPIKey)
	}
	fmt.Fprintf(out, "%s API key: ", provider)
	raw, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", errors.New("empty API key")
	}
	return key, nil
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil // Exit 0 for interruptions
	}
	return err
}

// logCompletion prints the closing line of a chat. The resume hint is only
// shown when the session outlives the process.
func logCompletion(w io.Writer, sessionID string, resumable bool, sig os.Signal) {
	msg := "Bye!"
	switch {
	case sig == os.Interrupt:
		fmt.Fprint(w, "[CTRL+C]\n")
		msg = "Interrupted."
	case sig != nil:
		fmt.Fprint(w, "\n")
		msg = "Terminated."
	}
	if resumable {
		printSystemMessage(w, "%s Resume with --session %s", msg, sessionID)
		return
	}
	printSystemMessage(w, "%s", msg)
}
