package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/runner"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StepsURI is the resource exposing the step catalogue.
const StepsURI = "stepwise://steps"

// FlowResponse is the structured result of every flow tool.
type FlowResponse struct {
	FlowID     string                   `json:"flow_id" jsonschema_description:"The flow instance to pass to subsequent calls"`
	View       *domain.View             `json:"view" jsonschema_description:"The step to present next, or the final status"`
	Validation *domain.ValidationResult `json:"validation,omitempty" jsonschema_description:"Outcome of staging or toggling"`
	Transition *domain.TransitionResult `json:"transition,omitempty" jsonschema_description:"Outcome of moving through the flow"`
	Error      string                   `json:"error,omitempty" jsonschema_description:"Submission or flow error, if any"`
}

// Server exposes a flow engine as an MCP Server. Flow state is kept in the
// session manager, so agents only carry the flow ID between calls.
type Server struct {
	engine    ports.FlowEngine
	manager   *session.Manager
	sink      ports.AnswerSink
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSink sets the sink completed flows are submitted to.
func WithSink(sink ports.AnswerSink) Option {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.FlowEngine, manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		manager:   manager,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("stepwise-mcp", strings.TrimSpace(stepwise.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
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

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_flow",
		mcp.WithDescription("Start a check-in flow, or return it if the ID already exists. Shows the first step."),
		mcp.WithString("flow_id", mcp.Description("Flow ID to use (optional, generated when omitted)")),
		mcp.WithOutputSchema[FlowResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("get_flow",
		mcp.WithDescription("Show the current step of a flow."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow ID")),
		mcp.WithOutputSchema[FlowResponse](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("answer",
		mcp.WithDescription("Answer the current step and continue. Choices are option IDs; several options are comma-separated."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow ID")),
		mcp.WithString("value", mcp.Required(), mcp.Description("The answer: an option ID, a number or free text")),
		mcp.WithOutputSchema[FlowResponse](),
	), mcp.NewStructuredToolHandler(s.handleAnswer))

	s.mcpServer.AddTool(mcp.NewTool("toggle",
		mcp.WithDescription("Toggle one option of a multiple choice step without continuing."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow ID")),
		mcp.WithString("option", mcp.Required(), mcp.Description("Option ID")),
		mcp.WithOutputSchema[FlowResponse](),
	), mcp.NewStructuredToolHandler(s.handleToggle))

	s.mcpServer.AddTool(mcp.NewTool("navigate",
		mcp.WithDescription("Move through the flow: continue with the current answer, go back, skip an optional step, exit without saving, or retry a failed submission."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow ID")),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum(string(runner.ActionNext), string(runner.ActionPrevious), string(runner.ActionSkip), string(runner.ActionExit), string(runner.ActionSubmit)),
			mcp.Description("Navigation action"),
		),
		mcp.WithOutputSchema[FlowResponse](),
	), mcp.NewStructuredToolHandler(s.handleNavigate))

	s.mcpServer.AddTool(mcp.NewTool("list_steps",
		mcp.WithDescription("List every step of the flow definition in order."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.engine.Steps())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StepsURI, "Flow steps",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Steps())
		if err != nil {
			return nil, fmt.Errorf("failed to encode steps: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      StepsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// Handler methods for structured tools

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (FlowResponse, error) {
	flowID, _ := args["flow_id"].(string)
	if flowID == "" {
		flowID = uuid.NewString()
	}
	state, err := s.manager.LoadOrStart(ctx, flowID, s.engine)
	if err != nil {
		return FlowResponse{}, fmt.Errorf("start failed: %w", err)
	}
	view, err := s.engine.Render(ctx, state)
	if err != nil {
		return FlowResponse{}, fmt.Errorf("render failed: %w", err)
	}
	return FlowResponse{FlowID: flowID, View: view}, nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (FlowResponse, error) {
	flowID, err := requireFlowID(args)
	if err != nil {
		return FlowResponse{}, err
	}
	state, err := s.manager.Load(ctx, flowID)
	if err != nil {
		return FlowResponse{}, fmt.Errorf("load failed: %w", err)
	}
	view, err := s.engine.Render(ctx, state)
	if err != nil {
		return FlowResponse{}, fmt.Errorf("render failed: %w", err)
	}
	return FlowResponse{FlowID: flowID, View: view}, nil
}

func (s *Server) handleAnswer(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (FlowResponse, error) {
	value, _ := args["value"].(string)
	return s.dispatch(ctx, args, runner.Command{Action: runner.ActionAnswer, Value: value})
}

func (s *Server) handleToggle(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (FlowResponse, error) {
	option, _ := args["option"].(string)
	return s.dispatch(ctx, args, runner.Command{Action: runner.ActionToggle, Value: option})
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (FlowResponse, error) {
	action, _ := args["action"].(string)
	switch runner.Action(action) {
	case runner.ActionNext, runner.ActionPrevious, runner.ActionSkip, runner.ActionExit, runner.ActionSubmit:
	default:
		return FlowResponse{}, fmt.Errorf("%w %q", runner.ErrUnknownAction, action)
	}
	return s.dispatch(ctx, args, runner.Command{Action: runner.Action(action)})
}

// dispatch applies a command under the flow lock. Submission failures are
// reported in the result rather than as a tool error, so the agent can retry.
func (s *Server) dispatch(ctx context.Context, args map[string]any, cmd runner.Command) (FlowResponse, error) {
	flowID, err := requireFlowID(args)
	if err != nil {
		return FlowResponse{}, err
	}

	var resp *runner.Response
	_, err = s.manager.Update(ctx, flowID, func(ctx context.Context, state *domain.FlowState) (*domain.FlowState, error) {
		next, out, err := runner.Dispatch(ctx, s.engine, state, cmd, s.sink)
		resp = out
		return next, err
	})
	if resp == nil {
		s.logger.Warn("MCP command rejected", "flow", flowID, "action", cmd.Action, "err", err)
		return FlowResponse{}, fmt.Errorf("%s failed: %w", cmd.Action, err)
	}

	if err != nil {
		s.logger.Debug("MCP command failed", "flow", flowID, "action", cmd.Action, "err", err)
	}
	return FlowResponse{
		FlowID:     flowID,
		View:       resp.View,
		Validation: resp.Validation,
		Transition: resp.Transition,
		Error:      resp.Error,
	}, nil
}

func requireFlowID(args map[string]any) (string, error) {
	flowID, _ := args["flow_id"].(string)
	if flowID == "" {
		return "", errors.New("flow_id is required")
	}
	return flowID, nil
}
