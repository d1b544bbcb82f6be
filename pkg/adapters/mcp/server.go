package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/proofreader"
	"github.com/aretw0/proofreader/internal/logging"
	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/aretw0/proofreader/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// TurnResponse is the structured result of every tool. Reply repeats the last
// assistant message so clients that ignore the transcript still see it.
type TurnResponse struct {
	Session *domain.Session `json:"session" jsonschema_description:"The conversation after this call"`
	Reply   string          `json:"reply,omitempty" jsonschema_description:"The latest assistant message"`
	Error   string          `json:"error,omitempty" jsonschema_description:"Set when the proofreading model could not be reached"`
}

// Engine defines what the MCP server needs from proofreader.Engine.
type Engine interface {
	Submit(ctx context.Context, sessionID, text string) (*domain.Session, error)
	Reset(ctx context.Context, sessionID string) (*domain.Session, error)
	Start(ctx context.Context, sessionID string) (*domain.Session, error)
	Sessions(ctx context.Context) ([]string, error)
}

var _ Engine = (*proofreader.Engine)(nil)

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("proofreader-mcp", proofreader.Version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	submitTool := mcp.NewTool("proofread_submit",
		mcp.WithDescription("Send text to proofread, or answer the pending offer of an error-free version (e.g. \"yes\" or \"no\")."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier; created on first use")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to proofread, or the answer to the correction offer")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(submitTool, mcp.NewStructuredToolHandler(s.handleSubmit))

	resetTool := mcp.NewTool("proofread_reset",
		mcp.WithDescription("Clear the conversation and start over."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(resetTool, mcp.NewStructuredToolHandler(s.handleReset))

	transcriptTool := mcp.NewTool("proofread_transcript",
		mcp.WithDescription("Get the conversation so far without changing it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(transcriptTool, mcp.NewStructuredToolHandler(s.handleTranscript))
}

func sessionArg(args map[string]interface{}) (string, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return "", errors.New("session_id is required")
	}
	if !domain.ValidSessionID(id) {
		return "", fmt.Errorf("invalid session_id %q: use 1-128 letters, digits, '_' or '-'", id)
	}
	return id, nil
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	id, err := sessionArg(args)
	if err != nil {
		return TurnResponse{}, err
	}
	text, _ := args["text"].(string)

	clean, err := runner.SanitizeInput(text)
	if err != nil {
		s.logger.Warn("MCP Submit: Input rejected", "session_id", id, "err", err, "size", len(text))
		return TurnResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	session, err := s.engine.Submit(ctx, id, clean)
	if err != nil {
		if errors.Is(err, domain.ErrExternalService) && session != nil {
			s.logger.Warn("MCP Submit: Model call failed", "session_id", id, "err", err)
			resp := respond(session)
			resp.Error = err.Error()
			return resp, nil
		}
		return TurnResponse{}, fmt.Errorf("submit failed: %w", err)
	}
	return respond(session), nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	id, err := sessionArg(args)
	if err != nil {
		return TurnResponse{}, err
	}
	session, err := s.engine.Reset(ctx, id)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return respond(session), nil
}

func (s *Server) handleTranscript(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	id, err := sessionArg(args)
	if err != nil {
		return TurnResponse{}, err
	}
	session, err := s.engine.Start(ctx, id)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("load failed: %w", err)
	}
	return respond(session), nil
}

func respond(session *domain.Session) TurnResponse {
	resp := TurnResponse{Session: session}
	if last, ok := session.Transcript.Last(); ok && last.Role == domain.RoleAssistant {
		resp.Reply = last.Text
	}
	return resp
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("proofreader://sessions", "Stored conversations",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.engine.Sessions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		if ids == nil {
			ids = []string{}
		}
		jsonBytes, _ := json.Marshal(ids)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "proofreader://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
