package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/proofreader"
	"github.com/aretw0/proofreader/internal/testutils"
	"github.com/aretw0/proofreader/pkg/adapters/memory"
	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, gen *testutils.FakeGenerator, opts ...proofreader.Option) (*proofreader.Engine, http.Handler) {
	t.Helper()
	eng, err := proofreader.New(gen, opts...)
	require.NoError(t, err)
	srv := NewServer(eng)
	t.Cleanup(srv.Close)
	return eng, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) *domain.Session {
	t.Helper()
	var s domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s), w.Body.String())
	return &s
}

func TestHealthAndInfo(t *testing.T) {
	_, h := newTestServer(t, testutils.NewFakeGenerator())

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/info", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), proofreader.Version)
}

func TestCreateSession(t *testing.T) {
	_, h := newTestServer(t, testutils.NewFakeGenerator())

	w := do(t, h, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	s := decodeSession(t, w)
	assert.Len(t, s.ID, 36, "generated ids are uuids")
	assert.Equal(t, domain.ModeAwaitingText, s.Mode)

	w = do(t, h, http.MethodPost, "/sessions", `{"id":"mine"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "mine", decodeSession(t, w).ID)

	w = do(t, h, http.MethodPost, "/sessions", `{"id":"../etc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list ListSessionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Contains(t, list.Sessions, "mine")
	assert.Len(t, list.Sessions, 2)
}

func TestConversationFlow(t *testing.T) {
	gen := testutils.NewFakeGenerator("1. \"has\" → \"have\"", "I have an apple.")
	_, h := newTestServer(t, gen)

	w := do(t, h, http.MethodPost, "/sessions/demo/messages", `{"text":"I has a apple"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s := decodeSession(t, w)
	assert.Equal(t, domain.ModeAwaitingCorrectionAnswer, s.Mode)
	require.NotNil(t, s.PendingOriginalText)

	w = do(t, h, http.MethodPost, "/sessions/demo/messages", `{"text":"yes please"}`)
	require.Equal(t, http.StatusOK, w.Code)
	s = decodeSession(t, w)
	assert.Equal(t, domain.ModeAwaitingText, s.Mode)
	assert.Nil(t, s.PendingOriginalText)
	last, _ := s.Transcript.Last()
	assert.Contains(t, last.Text, "I have an apple.")

	w = do(t, h, http.MethodGet, "/sessions/demo", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeSession(t, w).Transcript, 4)

	w = do(t, h, http.MethodPost, "/sessions/demo/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeSession(t, w).Transcript)

	w = do(t, h, http.MethodDelete, "/sessions/demo", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/demo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostMessage_ModelFailure(t *testing.T) {
	gen := testutils.NewFakeGenerator().Then("", errors.New("quota exceeded"))
	_, h := newTestServer(t, gen)

	w := do(t, h, http.MethodPost, "/sessions/f/messages", `{"text":"teh"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	require.NotNil(t, resp.Session)
	assert.Equal(t, domain.ModeAwaitingText, resp.Session.Mode)
	require.Len(t, resp.Session.Transcript, 2)
	assert.True(t, resp.Session.Transcript[1].Error)
}

func TestPostMessage_InvalidState(t *testing.T) {
	store := memory.NewStore()
	broken := domain.NewSession("broken")
	broken.Mode = domain.ModeAwaitingCorrectionAnswer
	require.NoError(t, store.Save(context.Background(), "broken", broken))

	_, h := newTestServer(t, testutils.NewFakeGenerator(), proofreader.WithStore(store))

	w := do(t, h, http.MethodPost, "/sessions/broken/messages", `{"text":"yes"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPostMessage_BadInput(t *testing.T) {
	_, h := newTestServer(t, testutils.NewFakeGenerator())

	w := do(t, h, http.MethodPost, "/sessions/x/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	t.Setenv("PROOFREADER_MAX_INPUT_SIZE", "5")
	w = do(t, h, http.MethodPost, "/sessions/x/messages", `{"text":"far too long"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/bad%20id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	eng, err := proofreader.New(testutils.NewFakeGenerator())
	require.NoError(t, err)

	h := NewHandler(eng, WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "proofreader_turns_total 0\n")
	})))
	w := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "proofreader_turns_total")

	w = do(t, NewHandler(eng), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeEvents_Session(t *testing.T) {
	eng, err := proofreader.New(testutils.NewFakeGenerator("1. typo"))
	require.NoError(t, err)
	srv := NewServer(eng)
	defer srv.Close()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sessions/sess-1/events?watch=transcript", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool { return srv.Streams.Subscribers("sess-1") == 1 }, time.Second, 10*time.Millisecond)

	_, err = eng.Submit(ctx, "sess-1", "teh")
	require.NoError(t, err)

	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}

	var diff domain.SessionDiff
	require.NoError(t, json.Unmarshal([]byte(data), &diff))
	assert.Equal(t, "sess-1", diff.SessionID)
	assert.Len(t, diff.Appended, 2)
	require.NotNil(t, diff.Mode)
	assert.Equal(t, domain.ModeAwaitingCorrectionAnswer, *diff.Mode)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager(slogDiscard())
	ch, cancel := sm.Subscribe("s")
	for i := 0; i < 20; i++ {
		sm.Broadcast("s", "m")
	}
	assert.Len(t, ch, 10)
	cancel()
	cancel()
	assert.Zero(t, sm.Subscribers("s"))
}

func TestMatchesWatch(t *testing.T) {
	mode := domain.ModeAwaitingText
	modeOnly, _ := json.Marshal(domain.SessionDiff{SessionID: "s", Mode: &mode})
	appended, _ := json.Marshal(domain.SessionDiff{SessionID: "s", Appended: []domain.Utterance{domain.UserSaid("x")}})

	assert.True(t, matchesWatch(string(modeOnly), []string{"mode"}))
	assert.False(t, matchesWatch(string(modeOnly), []string{"transcript"}))
	assert.True(t, matchesWatch(string(appended), []string{" transcript "}))
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
