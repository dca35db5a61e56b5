package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/runner"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Server exposes flows over a JSON API.
// Flow state lives in the session manager's store; every command is applied
// under the flow lock and persisted before the response is written.
type Server struct {
	Engine  ports.FlowEngine
	Manager *session.Manager
	Sink    ports.AnswerSink
	Streams *StreamManager
	Logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSink sets the sink completed flows are submitted to.
func WithSink(sink ports.AnswerSink) Option {
	return func(s *Server) {
		s.Sink = sink
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// StartRequest is the body of POST /flows.
type StartRequest struct {
	FlowID string `json:"flow_id,omitempty"`
}

// CommandRequest is the body of POST /flows/{id}/{action}.
type CommandRequest struct {
	Value any `json:"value,omitempty"`
}

// NewHandler creates a new HTTP handler for the engine.
//
//	GET    /health
//	GET    /info
//	GET    /steps
//	GET    /flows
//	POST   /flows
//	GET    /flows/{id}
//	DELETE /flows/{id}
//	GET    /flows/{id}/events
//	POST   /flows/{id}/{action}   (stage, toggle, select, answer, next, previous, skip, exit, submit)
func NewHandler(engine ports.FlowEngine, manager *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Manager: manager,
		Streams: NewStreamManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	s.Streams.logger = s.Logger

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/steps", s.GetSteps)
	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.ListFlows)
		r.Post("/", s.StartFlow)
		r.Route("/{flowID}", func(r chi.Router) {
			r.Get("/", s.GetFlow)
			r.Delete("/", s.DeleteFlow)
			r.Get("/events", s.SubscribeEvents)
			r.Post("/{action}", s.Command)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartFlow handles POST /flows. An existing flow with the same ID is returned as is.
func (s *Server) StartFlow(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("StartFlow: invalid request body", "err", err)
		return
	}
	if body.FlowID == "" {
		body.FlowID = uuid.NewString()
	}

	state, err := s.Manager.LoadOrStart(r.Context(), body.FlowID, s.Engine)
	if err != nil {
		s.fail(w, "StartFlow", err)
		return
	}
	view, err := s.Engine.Render(r.Context(), state)
	if err != nil {
		s.fail(w, "StartFlow", err)
		return
	}
	s.Streams.Broadcast(state.FlowID, domain.Diff(nil, state))
	writeJSON(w, http.StatusCreated, runner.Response{View: view}, s.Logger)
}

// GetFlow handles GET /flows/{id}.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	state, err := s.Manager.Load(r.Context(), flowID)
	if err != nil {
		s.fail(w, "GetFlow", err)
		return
	}
	view, err := s.Engine.Render(r.Context(), state)
	if err != nil {
		s.fail(w, "GetFlow", err)
		return
	}
	writeJSON(w, http.StatusOK, runner.Response{View: view}, s.Logger)
}

// DeleteFlow handles DELETE /flows/{id}. It discards the flow without submitting.
func (s *Server) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	if err := s.Manager.Delete(r.Context(), flowID); err != nil {
		s.fail(w, "DeleteFlow", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFlows handles GET /flows.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Manager.List(r.Context())
	if err != nil {
		s.fail(w, "ListFlows", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"flows": ids}, s.Logger)
}

// Command handles POST /flows/{id}/{action}.
func (s *Server) Command(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	action := runner.Action(chi.URLParam(r, "action"))
	if !slices.Contains(runner.Actions, action) {
		http.Error(w, fmt.Sprintf("Unknown action %q", action), http.StatusNotFound)
		return
	}

	var body CommandRequest
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("Command: invalid request body", "err", err)
		return
	}

	var (
		prev *domain.FlowState
		resp *runner.Response
	)
	next, err := s.Manager.Update(r.Context(), flowID, func(ctx context.Context, state *domain.FlowState) (*domain.FlowState, error) {
		prev = state
		next, out, err := runner.Dispatch(ctx, s.Engine, state, runner.Command{Action: action, Value: body.Value}, s.Sink)
		resp = out
		return next, err
	})

	if next != nil && prev != nil {
		s.Streams.Broadcast(flowID, domain.Diff(prev, next))
	}
	if err != nil && resp == nil {
		s.fail(w, "Command", err)
		return
	}
	writeJSON(w, statusOf(err), resp, s.Logger)
}

// GetSteps handles GET /steps.
func (s *Server) GetSteps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Steps(), s.Logger)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.Logger)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "stepwise-http",
		"version": strings.TrimSpace(stepwise.Version),
	}, s.Logger)
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "err", err)
	} else {
		s.Logger.Debug(op+" rejected", "err", err)
	}
	http.Error(w, err.Error(), status)
}

// statusOf maps engine and store errors to HTTP status codes.
// Validation failures are not errors: they are reported with 200 in the response body.
func statusOf(err error) int {
	var subErr *domain.SubmissionError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, runner.ErrInvalidCommand):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFlowCompleted),
		errors.Is(err, domain.ErrFlowAbandoned),
		errors.Is(err, domain.ErrFlowNotCompleted):
		return http.StatusConflict
	case errors.As(err, &subErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
