package process_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/adapters/process"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.AnswerSink = (*process.Sink)(nil)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func answers() domain.AnswerStore {
	return domain.AnswerStore{
		"mood":       domain.MoodAnswer(domain.Mood{ID: "calm"}),
		"intensity":  domain.NumberAnswer(4),
		"activities": domain.ChoicesAnswer("work", "rest"),
		"notes":      domain.TextAnswer("; rm -rf /"),
	}
}

func TestSink_PipesAnswers(t *testing.T) {
	skipOnWindows(t)
	out := filepath.Join(t.TempDir(), "out.json")

	sink := process.NewSink("save", process.WithRegistry(map[string]process.CommandConfig{
		"save": {Name: "save", Command: "sh", Args: []string{"-c", `cat > "$OUT"`}, Environment: map[string]string{"OUT": out}},
	}))

	require.NoError(t, sink.Submit(context.Background(), "flow-1", answers()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var payload struct {
		FlowID  string             `json:"flow_id"`
		Answers domain.AnswerStore `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "flow-1", payload.FlowID)
	assert.Equal(t, "; rm -rf /", payload.Answers["notes"].Text)
}

func TestSink_ExportsEnvironment(t *testing.T) {
	skipOnWindows(t)
	out := filepath.Join(t.TempDir(), "env.txt")

	sink := process.NewSink("env", process.WithBaseDir(t.TempDir()))
	sink.Register("env", "sh", "-c", `env | grep ^STEPWISE_ | sort > `+out)

	require.NoError(t, sink.Submit(context.Background(), "flow-2", answers()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	env := string(data)
	assert.Contains(t, env, "STEPWISE_FLOW_ID=flow-2")
	assert.Contains(t, env, "STEPWISE_ANSWER_MOOD=calm")
	assert.Contains(t, env, "STEPWISE_ANSWER_INTENSITY=4")
	assert.Contains(t, env, `STEPWISE_ANSWER_ACTIVITIES=["work","rest"]`)
}

func TestSink_Failures(t *testing.T) {
	skipOnWindows(t)
	ctx := context.Background()

	t.Run("Unregistered", func(t *testing.T) {
		err := process.NewSink("missing").Submit(ctx, "f", answers())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not registered")
	})

	t.Run("Non-Zero Exit", func(t *testing.T) {
		sink := process.NewSink("fail")
		sink.Register("fail", "sh", "-c", "echo upstream down >&2; exit 3")
		err := sink.Submit(ctx, "f", answers())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream down")
	})

	t.Run("Timeout", func(t *testing.T) {
		sink := process.NewSink("slow", process.WithTimeout(100*time.Millisecond))
		sink.Register("slow", "sh", "-c", "exec sleep 5")
		err := sink.Submit(ctx, "f", answers())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLoadCommands(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "sinks.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
sinks:
  - name: webhook
    command: ./post.sh
    args: [--quiet]
    timeout: 5s
  - command: ignored-without-name
`), 0644))

		cmds, err := process.LoadCommands(path)
		require.NoError(t, err)
		require.Len(t, cmds, 1)
		assert.Equal(t, "./post.sh", cmds["webhook"].Command)
		assert.Equal(t, "5s", cmds["webhook"].Timeout)
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "sinks.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"sinks":[{"name":"log","command":"logger"}]}`), 0644))

		cmds, err := process.LoadCommands(path)
		require.NoError(t, err)
		assert.Equal(t, "logger", cmds["log"].Command)
	})

	t.Run("Missing File", func(t *testing.T) {
		cmds, err := process.LoadCommands(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.Empty(t, cmds)
	})
}
