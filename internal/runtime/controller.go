package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/proofreader/internal/logging"
	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/aretw0/proofreader/pkg/ports"
)

// Controller is the conversation state machine.
// It holds no session state: each operation receives a Session and returns
// a new snapshot, leaving the input untouched.
type Controller struct {
	generator ports.Generator
	matcher   *AffirmativeMatcher
	prompts   Prompts
	templates *requestTemplates
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures the Controller.
type Option func(*Controller)

// WithAffirmatives replaces the keyword set used to read correction answers.
func WithAffirmatives(keywords []string) Option {
	return func(c *Controller) {
		c.matcher = NewAffirmativeMatcher(keywords)
	}
}

// WithPrompts overrides request templates and fixed texts. Empty fields keep defaults.
func WithPrompts(p Prompts) Option {
	return func(c *Controller) {
		c.prompts = p
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller that calls generator for model requests.
func NewController(generator ports.Generator, opts ...Option) (*Controller, error) {
	if generator == nil {
		return nil, errors.New("runtime: generator is required")
	}
	c := &Controller{
		generator: generator,
		matcher:   NewAffirmativeMatcher(DefaultAffirmatives),
		prompts:   DefaultPrompts(),
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.prompts = c.prompts.withDefaults()
	templates, err := parseTemplates(c.prompts)
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	c.templates = templates
	return c, nil
}

// Submit processes one user utterance.
//
// In ModeAwaitingText the text is sent for mistake finding; in
// ModeAwaitingCorrectionAnswer it is read as a yes/no answer. On an
// ExternalServiceError the returned session still carries the user utterance
// and a visible error message, but the mode and pending text are unchanged.
// An InvalidStateError returns a nil session.
func (c *Controller) Submit(ctx context.Context, session *domain.Session, text string) (*domain.Session, error) {
	if session == nil {
		return nil, c.invalid(ctx, "", &domain.InvalidStateError{Reason: "nil session"})
	}
	if err := session.Validate(); err != nil {
		return nil, c.invalid(ctx, session.ID, err)
	}

	next := session.Snapshot()
	next.Transcript = next.Transcript.Append(domain.UserSaid(text))

	switch session.Mode {
	case domain.ModeAwaitingText:
		return c.findMistakes(ctx, session.Mode, next, text)
	case domain.ModeAwaitingCorrectionAnswer:
		original, _ := next.Pending()
		return c.answer(ctx, session.Mode, next, original, text)
	default:
		// Unreachable after Validate.
		return nil, c.invalid(ctx, session.ID, &domain.InvalidStateError{Reason: fmt.Sprintf("unknown mode %q", session.Mode)})
	}
}

// Reset returns an empty session with the same ID. Idempotent.
func (c *Controller) Reset(ctx context.Context, session *domain.Session) *domain.Session {
	id := ""
	if session != nil {
		id = session.ID
	}
	if c.hooks.OnReset != nil {
		c.hooks.OnReset(ctx, &domain.EventBase{Timestamp: c.now(), Type: domain.EventReset, SessionID: id})
	}
	c.logger.Debug("Session reset", "session_id", id)
	return domain.NewSession(id)
}

// IsAffirmative exposes the configured matcher.
func (c *Controller) IsAffirmative(reply string) bool {
	return c.matcher.IsAffirmative(reply)
}

// Prompts returns the effective texts.
func (c *Controller) Prompts() Prompts {
	return c.prompts
}

func (c *Controller) findMistakes(ctx context.Context, from domain.Mode, next *domain.Session, text string) (*domain.Session, error) {
	prompt, err := execute(c.templates.findMistakes, text)
	if err != nil {
		return nil, err
	}

	reply, err := c.generate(ctx, next.ID, domain.PurposeFindMistakes, prompt)
	if err != nil {
		return c.fail(ctx, from, next, err)
	}

	next.Transcript = next.Transcript.Append(domain.AssistantSaid(reply + c.prompts.Offer))
	next.Mode = domain.ModeAwaitingCorrectionAnswer
	next.PendingOriginalText = &text

	c.emitTurn(ctx, next.ID, from, next.Mode, domain.OutcomeOffered)
	return next, nil
}

func (c *Controller) answer(ctx context.Context, from domain.Mode, next *domain.Session, original, reply string) (*domain.Session, error) {
	if !c.matcher.IsAffirmative(reply) {
		next.Transcript = next.Transcript.Append(domain.AssistantSaid(c.prompts.Decline))
		next.Mode = domain.ModeAwaitingText
		next.PendingOriginalText = nil

		c.emitTurn(ctx, next.ID, from, next.Mode, domain.OutcomeDeclined)
		return next, nil
	}

	prompt, err := execute(c.templates.correction, original)
	if err != nil {
		return nil, err
	}

	corrected, err := c.generate(ctx, next.ID, domain.PurposeCorrect, prompt)
	if err != nil {
		return c.fail(ctx, from, next, err)
	}

	next.Transcript = next.Transcript.Append(domain.AssistantSaid(c.prompts.CorrectionHeader + corrected))
	next.Mode = domain.ModeAwaitingText
	next.PendingOriginalText = nil

	c.emitTurn(ctx, next.ID, from, next.Mode, domain.OutcomeCorrected)
	return next, nil
}

// generate performs the single model call of a turn.
func (c *Controller) generate(ctx context.Context, sessionID, purpose, prompt string) (string, error) {
	start := c.now()
	reply, err := c.generator.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = domain.ErrEmptyResponse
	}
	elapsed := c.now().Sub(start)

	if c.hooks.OnModelCall != nil {
		c.hooks.OnModelCall(ctx, &domain.ModelEvent{
			EventBase: domain.EventBase{Timestamp: c.now(), Type: domain.EventModelCall, SessionID: sessionID},
			Purpose:   purpose,
			Duration:  elapsed,
			IsError:   err != nil,
		})
	}

	if err != nil {
		c.logger.Warn("Model call failed",
			"session_id", sessionID,
			"purpose", purpose,
			"duration", elapsed,
			"err", err,
		)
		return "", &domain.ExternalServiceError{Purpose: purpose, Err: err}
	}

	c.logger.Debug("Model call completed", "session_id", sessionID, "purpose", purpose, "duration", elapsed)
	return strings.TrimSpace(reply), nil
}

// fail surfaces a model failure in the transcript without advancing the state machine.
func (c *Controller) fail(ctx context.Context, from domain.Mode, next *domain.Session, err error) (*domain.Session, error) {
	next.Transcript = next.Transcript.Append(domain.Utterance{
		Role:  domain.RoleAssistant,
		Text:  c.prompts.ServiceError,
		Error: true,
	})
	c.emitTurn(ctx, next.ID, from, next.Mode, domain.OutcomeFailed)
	return next, err
}

func (c *Controller) invalid(ctx context.Context, sessionID string, err error) error {
	c.logger.ErrorContext(ctx, "Conversation invariant violated", "session_id", sessionID, "err", err)
	return err
}

func (c *Controller) emitTurn(ctx context.Context, sessionID string, from, to domain.Mode, outcome string) {
	c.logger.Debug("Turn completed", "session_id", sessionID, "from", from, "to", to, "outcome", outcome)
	if c.hooks.OnTurn == nil {
		return
	}
	c.hooks.OnTurn(ctx, &domain.TurnEvent{
		EventBase: domain.EventBase{Timestamp: c.now(), Type: domain.EventTurn, SessionID: sessionID},
		From:      from,
		To:        to,
		Outcome:   outcome,
	})
}
