package proofreader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/proofreader/internal/logging"
	"github.com/aretw0/proofreader/internal/runtime"
	"github.com/aretw0/proofreader/pkg/adapters/memory"
	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/aretw0/proofreader/pkg/ports"
	"github.com/aretw0/proofreader/pkg/session"
)

// Prompts holds the request templates and fixed assistant texts.
type Prompts = runtime.Prompts

// DefaultPrompts returns the stock proofreading texts.
func DefaultPrompts() Prompts { return runtime.DefaultPrompts() }

// DefaultAffirmatives is the stock keyword set for reading a correction answer.
var DefaultAffirmatives = runtime.DefaultAffirmatives

// Observer receives the changes produced by every successful or partially
// failed transition. It runs synchronously on the calling goroutine.
type Observer = func(diff *domain.SessionDiff)

// Engine is the high-level entry point for the proofreader library.
// It wraps the conversation controller with session persistence and locking.
type Engine struct {
	controller *runtime.Controller
	manager    *session.Manager

	store       ports.SessionStore
	locker      ports.DistributedLocker
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	affirmative []string
	prompts     *Prompts

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the session store. Defaults to an in-memory store.
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed locking of session turns.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithAffirmatives replaces the keywords accepted as a "yes" to the correction offer.
func WithAffirmatives(keywords ...string) Option {
	return func(e *Engine) {
		e.affirmative = keywords
	}
}

// WithPrompts overrides request templates and fixed texts.
func WithPrompts(p Prompts) Option {
	return func(e *Engine) {
		e.prompts = &p
	}
}

// WithObserver registers a diff observer for the engine's whole lifetime.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		e.addObserver(obs)
	}
}

// New initializes an Engine that sends model requests to generator.
func New(generator ports.Generator, opts ...Option) (*Engine, error) {
	eng := &Engine{observers: make(map[int]Observer)}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	ctrlOpts := []runtime.Option{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	}
	if eng.affirmative != nil {
		ctrlOpts = append(ctrlOpts, runtime.WithAffirmatives(eng.affirmative))
	}
	if eng.prompts != nil {
		ctrlOpts = append(ctrlOpts, runtime.WithPrompts(*eng.prompts))
	}

	ctrl, err := runtime.NewController(generator, ctrlOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build controller: %w", err)
	}
	eng.controller = ctrl

	mgrOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(eng.locker))
	}
	eng.manager = session.NewManager(eng.store, mgrOpts...)

	return eng, nil
}

// Submit processes one user utterance for the session, creating it on first use.
//
// When the model call fails the returned error matches domain.ErrExternalService
// and the returned session, already persisted, carries the failure message with
// its mode unchanged. An invariant violation returns a nil session and an error
// matching domain.ErrInvalidState.
func (e *Engine) Submit(ctx context.Context, sessionID, text string) (*domain.Session, error) {
	var before *domain.Session
	next, err := e.manager.Update(ctx, sessionID, func(ctx context.Context, current *domain.Session) (*domain.Session, error) {
		before = current
		return e.controller.Submit(ctx, current, text)
	})
	if next != nil {
		e.notify(domain.Diff(before, next))
	}
	return next, err
}

// Reset clears the transcript and returns the session to awaiting text.
func (e *Engine) Reset(ctx context.Context, sessionID string) (*domain.Session, error) {
	var before *domain.Session
	next, err := e.manager.Update(ctx, sessionID, func(ctx context.Context, current *domain.Session) (*domain.Session, error) {
		before = current
		return e.controller.Reset(ctx, current), nil
	})
	if err != nil {
		return nil, err
	}
	e.notify(domain.Diff(before, next))
	return next, nil
}

// Session loads a stored session. Returns domain.ErrSessionNotFound if missing.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.manager.Load(ctx, sessionID)
}

// Start loads a session or creates an empty one.
func (e *Engine) Start(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.manager.LoadOrStart(ctx, sessionID)
}

// Sessions lists stored session IDs.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.manager.List(ctx)
}

// Delete removes a stored session.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.manager.Delete(ctx, sessionID)
}

// IsAffirmative reports whether reply would accept a correction offer.
func (e *Engine) IsAffirmative(reply string) bool {
	return e.controller.IsAffirmative(reply)
}

// Store returns the session store used by the engine.
func (e *Engine) Store() ports.SessionStore {
	return e.store
}

// Subscribe registers an observer until the returned cancel func is called.
func (e *Engine) Subscribe(obs Observer) (cancel func()) {
	id := e.addObserver(obs)
	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		delete(e.observers, id)
	}
}

func (e *Engine) addObserver(obs Observer) int {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = obs
	return id
}

func (e *Engine) notify(diff *domain.SessionDiff) {
	if diff == nil {
		return
	}
	e.obsMu.RLock()
	defer e.obsMu.RUnlock()
	for _, obs := range e.observers {
		obs(diff)
	}
}
