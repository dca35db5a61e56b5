package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/definitions"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/runner"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler http.Handler
	store   *memory.Store
	sink    *memory.Sink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	def, err := definitions.Load("mood-checkin")
	require.NoError(t, err)
	eng, err := stepwise.Compile(def)
	require.NoError(t, err)

	store := memory.NewStore()
	sink := memory.NewSink()
	return &fixture{
		handler: NewHandler(eng, session.NewManager(store), WithSink(sink)),
		store:   store,
		sink:    sink,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) runner.Response {
	t.Helper()
	var resp runner.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestServer_FullFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/flows", StartRequest{FlowID: "f1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, "mood", resp.View.Step.ID)
	assert.True(t, resp.View.AutoAdvance)

	t.Run("Validation errors are reported in the body", func(t *testing.T) {
		w := f.do(t, "POST", "/flows/f1/next", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		require.NotNil(t, resp.Transition)
		assert.Equal(t, domain.OutcomeRejected, resp.Transition.Outcome)
		assert.Equal(t, "Mood is required to continue", resp.Transition.Error.Message)
	})

	steps := []struct {
		path  string
		value any
		want  string
	}{
		{"/flows/f1/select", "happy", "intensity"},
		{"/flows/f1/answer", 5, "activities"},
		{"/flows/f1/toggle", "exercise", "activities"},
		{"/flows/f1/next", nil, "notes"},
	}
	for _, s := range steps {
		w := f.do(t, "POST", s.path, CommandRequest{Value: s.value})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, s.want, decode(t, w).View.Step.ID, s.path)
	}

	w = f.do(t, "GET", "/flows/f1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode(t, w).View.Index)

	w = f.do(t, "POST", "/flows/f1/answer", CommandRequest{Value: "a good day"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = decode(t, w)
	assert.Equal(t, domain.OutcomeCompleted, resp.Transition.Outcome)
	assert.Equal(t, domain.StatusSubmitted, resp.View.Status)

	subs := f.sink.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "f1", subs[0].FlowID)
	assert.Equal(t, []string{"exercise"}, subs[0].Answers["activities"].Choices)

	w = f.do(t, "GET", "/flows/f1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "submitted flows are removed from the store")
}

func TestServer_SubmissionFailure(t *testing.T) {
	f := newFixture(t)
	f.sink.FailNext(assert.AnError)

	f.do(t, "POST", "/flows", StartRequest{FlowID: "f2"})
	for _, cmd := range []struct {
		action string
		value  any
	}{
		{"select", "calm"},
		{"answer", "2"},
		{"answer", []string{"rest"}},
	} {
		w := f.do(t, "POST", "/flows/f2/"+cmd.action, CommandRequest{Value: cmd.value})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := f.do(t, "POST", "/flows/f2/skip", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode(t, w)
	assert.Equal(t, domain.StatusCompleted, resp.View.Status)
	assert.Contains(t, resp.Error, "attempt 1")

	state, err := f.store.Load(context.Background(), "f2")
	require.NoError(t, err, "completed flows stay stored until submitted")
	assert.Equal(t, 1, state.SubmitAttempts)

	w = f.do(t, "POST", "/flows/f2/next", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, "POST", "/flows/f2/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.StatusSubmitted, decode(t, w).View.Status)
	assert.Len(t, f.sink.Submissions(), 1)
}

func TestServer_Errors(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/flows", StartRequest{FlowID: "f3"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"Unknown flow", "GET", "/flows/nope", nil, http.StatusNotFound},
		{"Unknown flow command", "POST", "/flows/nope/next", nil, http.StatusNotFound},
		{"Unknown action", "POST", "/flows/f3/dance", nil, http.StatusNotFound},
		{"Toggle without option", "POST", "/flows/f3/toggle", nil, http.StatusBadRequest},
		{"Submit while active", "POST", "/flows/f3/submit", nil, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	t.Run("Malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/flows/f3/stage", strings.NewReader("{"))
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Oversized input", func(t *testing.T) {
		t.Setenv(runner.EnvMaxInputSize, "4")
		w := f.do(t, "POST", "/flows/f3/stage", CommandRequest{Value: "far too long"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_ExitDiscards(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/flows", StartRequest{FlowID: "f4"})

	w := f.do(t, "POST", "/flows/f4/previous", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, domain.OutcomeExited, resp.Transition.Outcome)

	ids, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, f.sink.Submissions())
}

func TestServer_Meta(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "GET", "/health", nil)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, "GET", "/info", nil)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "stepwise-http", info["app"])
	assert.Equal(t, strings.TrimSpace(stepwise.Version), info["version"])

	w = f.do(t, "GET", "/steps", nil)
	var steps []domain.Step
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &steps))
	require.Len(t, steps, 4)
	assert.Equal(t, "notes", steps[3].ID)

	f.do(t, "POST", "/flows", StartRequest{FlowID: "listed"})
	w = f.do(t, "GET", "/flows", nil)
	assert.JSONEq(t, `{"flows":["listed"]}`, w.Body.String())

	req := httptest.NewRequest("OPTIONS", "/flows", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t)
	f.do(t, "POST", "/flows", StartRequest{FlowID: "sse"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/flows/sse/events?watch=answers", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		f.handler.ServeHTTP(sub, req)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	// A rejected command changes nothing and is not broadcast.
	f.do(t, "POST", "/flows/sse/next", nil)
	w := f.do(t, "POST", "/flows/sse/select", CommandRequest{Value: "tired"})
	require.Equal(t, http.StatusOK, w.Code)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := sub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"mood":{"type":"mood"`)
	assert.Equal(t, 1, strings.Count(output, "data: {"), "one diff expected")
}
