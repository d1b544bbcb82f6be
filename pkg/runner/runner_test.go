package runner_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/proofreader"
	"github.com/aretw0/proofreader/internal/testutils"
	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/aretw0/proofreader/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChat(t *testing.T, gen *testutils.FakeGenerator, input string, opts ...runner.Option) (*runner.Runner, *proofreader.Engine, *bytes.Buffer) {
	t.Helper()
	engine, err := proofreader.New(gen)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	opts = append([]runner.Option{
		runner.WithSessionID("chat"),
		runner.WithInputHandler(runner.NewTextHandler(strings.NewReader(input), out)),
	}, opts...)
	return runner.NewRunner(engine, opts...), engine, out
}

func TestRunner_AcceptedCorrection(t *testing.T) {
	gen := testutils.NewFakeGenerator("**Mistakes Found:**\n\n1. \"has\" → \"have\"", "I have an apple.")
	r, engine, out := newChat(t, gen, "I has a apple\nyes\nexit\nnever read\n",
		runner.WithWelcome("Hi! Paste your text."))

	require.NoError(t, r.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "Hi! Paste your text.")
	assert.Contains(t, output, "Would you like me to generate an error-free version")
	assert.Contains(t, output, "Here's your error-free version:")
	assert.Contains(t, output, "I have an apple.")
	assert.NotContains(t, output, "never read")
	assert.Equal(t, 2, gen.Calls())

	session, err := engine.Session(context.Background(), "chat")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingText, session.Mode)
	assert.Len(t, session.Transcript, 4)
}

func TestRunner_SkipsBlankLinesWhileAwaitingText(t *testing.T) {
	gen := testutils.NewFakeGenerator("**Mistakes Found:**")
	r, engine, out := newChat(t, gen, "\n   \nShe go to school\nnah\n")

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 1, gen.Calls())
	assert.Contains(t, out.String(), proofreader.DefaultPrompts().Decline)

	session, err := engine.Session(context.Background(), "chat")
	require.NoError(t, err)
	assert.Len(t, session.Transcript, 4)
	assert.Equal(t, "She go to school", session.Transcript[0].Text)
}

func TestRunner_ServiceFailureKeepsChatting(t *testing.T) {
	gen := testutils.NewFakeGenerator().
		Then("", errors.New("connection refused")).
		Then("**Mistakes Found:**", nil)
	r, engine, out := newChat(t, gen, "I has a apple\nI has a apple\n")

	require.NoError(t, r.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, proofreader.DefaultPrompts().ServiceError)
	assert.Contains(t, output, "**Mistakes Found:**")
	assert.Equal(t, 2, gen.Calls())

	session, err := engine.Session(context.Background(), "chat")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingCorrectionAnswer, session.Mode)
}

func TestRunner_ClearCommand(t *testing.T) {
	gen := testutils.NewFakeGenerator("**Mistakes Found:**")
	r, engine, out := newChat(t, gen, "I has a apple\n/clear\n/help\nquit\n")

	require.NoError(t, r.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "[System] Conversation cleared.")
	assert.Contains(t, output, "/clear starts over")

	session, err := engine.Session(context.Background(), "chat")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAwaitingText, session.Mode)
	assert.Empty(t, session.Transcript)
	assert.Nil(t, session.PendingOriginalText)
}

func TestRunner_ResumeReplaysTranscript(t *testing.T) {
	gen := testutils.NewFakeGenerator("**Mistakes Found:**")
	engine, err := proofreader.New(gen)
	require.NoError(t, err)
	_, err = engine.Submit(context.Background(), "chat", "I has a apple")
	require.NoError(t, err)

	out := &bytes.Buffer{}
	r := runner.NewRunner(engine,
		runner.WithSessionID("chat"),
		runner.WithWelcome("Hi! Paste your text."),
		runner.WithInputHandler(runner.NewTextHandler(strings.NewReader(""), out)),
	)
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "I has a apple")
	assert.Contains(t, out.String(), "**Mistakes Found:**")
	assert.NotContains(t, out.String(), "Hi! Paste your text.", "welcome is only for empty conversations")

	out.Reset()
	headless := runner.NewRunner(engine,
		runner.WithSessionID("chat"),
		runner.WithHeadless(true),
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(""), out)),
	)
	require.NoError(t, headless.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestRunner_GeneratesSessionID(t *testing.T) {
	r, engine, _ := newChat(t, testutils.NewFakeGenerator(), "", runner.WithSessionID(""))

	require.NoError(t, r.Run(context.Background()))

	assert.NotEmpty(t, r.SessionID)
	ids, err := engine.Sessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{r.SessionID}, ids)
}

func TestRunner_ContextCancelIsCleanExit(t *testing.T) {
	engine, err := proofreader.New(testutils.NewFakeGenerator())
	require.NoError(t, err)

	pr, pw := io.Pipe()
	defer pw.Close()
	r := runner.NewRunner(engine, runner.WithInputHandler(runner.NewTextHandler(pr, io.Discard)))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.NoError(t, r.Run(ctx))
}

type brokenEngine struct{}

func (brokenEngine) Submit(ctx context.Context, id, text string) (*domain.Session, error) {
	return nil, &domain.InvalidStateError{Reason: "awaiting answer without pending text"}
}

func (brokenEngine) Reset(ctx context.Context, id string) (*domain.Session, error) {
	return domain.NewSession(id), nil
}

func (brokenEngine) Start(ctx context.Context, id string) (*domain.Session, error) {
	return domain.NewSession(id), nil
}

func TestRunner_InvalidStateStops(t *testing.T) {
	r := runner.NewRunner(brokenEngine{},
		runner.WithInputHandler(runner.NewTextHandler(strings.NewReader("hello\n"), io.Discard)),
	)

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRunner_JSONMode(t *testing.T) {
	gen := testutils.NewFakeGenerator("**Mistakes Found:**")
	engine, err := proofreader.New(gen)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	r := runner.NewRunner(engine,
		runner.WithHeadless(true),
		runner.WithWelcome("ignored when headless"),
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(`{"text":"I has a apple"}`+"\n"), out)),
	)
	require.NoError(t, r.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"type":"utterance"`)
	assert.Contains(t, lines[0], `"role":"assistant"`)
	assert.NotContains(t, out.String(), "ignored when headless")
}

func TestRunner_JSONMode_RejectedLineDoesNotEndChat(t *testing.T) {
	gen := testutils.NewFakeGenerator("**Mistakes Found:**")
	engine, err := proofreader.New(gen)
	require.NoError(t, err)

	input := strings.Repeat("x", 20000) + "\n" + `"I has a apple"` + "\n"
	out := &bytes.Buffer{}
	r := runner.NewRunner(engine,
		runner.WithHeadless(true),
		runner.WithInputHandler(runner.NewJSONHandler(strings.NewReader(input), out)),
	)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 1, gen.Calls())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"type":"system"`)
	assert.Contains(t, lines[0], "maximum allowed size")
	assert.Contains(t, lines[1], `"role":"assistant"`)
}
