package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/proofreader/internal/logging"
	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/google/uuid"
)

// Chat commands recognised by the Runner.
const (
	CommandClear = "/clear"
	CommandHelp  = "/help"
)

// HelpText lists the chat commands.
const HelpText = "Paste a text to proofread. End a line with \\ to continue on the next one.\n" +
	"Commands: /clear starts over, /help shows this message, exit or quit leaves."

// Engine is the part of the proofreader engine the Runner drives.
type Engine interface {
	Submit(ctx context.Context, sessionID, text string) (*domain.Session, error)
	Reset(ctx context.Context, sessionID string) (*domain.Session, error)
	Start(ctx context.Context, sessionID string) (*domain.Session, error)
}

// Runner handles the chat loop of the proofreader engine using provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. If nil, a TextHandler on stdin/stdout is used.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	SessionID string
	Welcome   string
	Headless  bool

	engine Engine
}

// NewRunner creates a Runner for engine.
func NewRunner(engine Engine, opts ...Option) *Runner {
	r := &Runner{engine: engine}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run executes the chat loop until the input ends, the user leaves, or ctx
// is cancelled. Those are all clean exits and return nil.
//
// A failed model call is already part of the transcript, so it is shown and
// the loop continues. Any other engine error stops the loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.engine == nil {
		return errors.New("runner: engine is required")
	}
	handler := r.resolveHandler()
	if r.SessionID == "" {
		r.SessionID = uuid.NewString()
	}

	session, err := r.engine.Start(ctx, r.SessionID)
	if err != nil {
		return fmt.Errorf("failed to start session %s: %w", r.SessionID, err)
	}
	r.Logger.Debug("Chat started", "session_id", r.SessionID, "resumed", len(session.Transcript) > 0)

	if !r.Headless {
		greeting := session.Transcript
		if len(greeting) == 0 && r.Welcome != "" {
			greeting = []domain.Utterance{domain.AssistantSaid(r.Welcome)}
		}
		if len(greeting) > 0 {
			if err := handler.Output(ctx, greeting); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}
	}

	for {
		input, err := handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				r.Logger.Debug("Chat ended", "session_id", r.SessionID, "reason", err)
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		trimmed := strings.TrimSpace(input)
		switch strings.ToLower(trimmed) {
		case "exit", "quit":
			return nil
		case CommandHelp:
			if err := handler.SystemOutput(ctx, HelpText); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			continue
		case CommandClear:
			if session, err = r.engine.Reset(ctx, r.SessionID); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			if err := handler.SystemOutput(ctx, "Conversation cleared."); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			continue
		}

		if trimmed == "" && session.Mode == domain.ModeAwaitingText {
			continue
		}

		next, err := r.engine.Submit(ctx, r.SessionID, input)
		if next != nil {
			if outErr := handler.Output(ctx, replies(session, next)); outErr != nil {
				return fmt.Errorf("output error: %w", outErr)
			}
			session = next
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, domain.ErrExternalService) {
				r.Logger.Debug("Model call failed, waiting for the next message", "session_id", r.SessionID, "err", err)
				continue
			}
			return fmt.Errorf("submit failed: %w", err)
		}
	}
}

// replies returns the assistant utterances next added on top of prev.
// The user's own message is not echoed back.
func replies(prev, next *domain.Session) []domain.Utterance {
	start := len(prev.Transcript)
	if start > len(next.Transcript) {
		// Reset elsewhere (another client on the same session).
		start = 0
	}
	var out []domain.Utterance
	for _, u := range next.Transcript[start:] {
		if u.Role == domain.RoleAssistant {
			out = append(out, u)
		}
	}
	return out
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		// Memoize to prevent creating new pumps on subsequent Run() calls
		r.Handler = NewTextHandler(nil, nil)
	}
	return r.Handler
}
