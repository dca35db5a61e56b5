// Package process hands submitted answers to local commands.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
)

// EnvPrefix prefixes every variable the sink exports to the command.
const EnvPrefix = "STEPWISE_"

var envKeyUnsafe = regexp.MustCompile(`[^A-Z0-9_]`)

// Sink implements ports.AnswerSink by running an allow-listed command.
//
// The answers are written to stdin as JSON. Scalar values are also exported
// as STEPWISE_ANSWER_<STEP> variables and the flow ID as STEPWISE_FLOW_ID.
// Nothing from the answers is ever passed as a command-line argument.
// A non-zero exit fails the submission with the command's stderr.
type Sink struct {
	registry map[string]CommandConfig
	name     string
	baseDir  string
	timeout  time.Duration
}

// SinkOption configures the sink.
type SinkOption func(*Sink)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(commands map[string]CommandConfig) SinkOption {
	return func(s *Sink) {
		for name, c := range commands {
			s.registry[name] = c
		}
	}
}

// WithBaseDir sets the working directory for executed commands.
func WithBaseDir(dir string) SinkOption {
	return func(s *Sink) {
		s.baseDir = dir
	}
}

// WithTimeout bounds each run unless the command sets its own timeout.
func WithTimeout(d time.Duration) SinkOption {
	return func(s *Sink) {
		s.timeout = d
	}
}

// NewSink creates a sink that runs the command registered under name.
func NewSink(name string, opts ...SinkOption) *Sink {
	s := &Sink{
		registry: make(map[string]CommandConfig),
		name:     name,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a trusted command to the allow-list.
func (s *Sink) Register(name, command string, args ...string) {
	s.registry[name] = CommandConfig{Name: name, Command: command, Args: args}
}

// Submit runs the selected command with the answers.
func (s *Sink) Submit(ctx context.Context, flowID string, answers domain.AnswerStore) error {
	cfg, ok := s.registry[s.name]
	if !ok {
		return fmt.Errorf("submission command not registered: %s", s.name)
	}

	timeout := s.timeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("command %s: invalid timeout %q: %w", cfg.Name, cfg.Timeout, err)
		}
		timeout = d
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	payload, err := json.Marshal(map[string]any{
		"flow_id": flowID,
		"answers": answers,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = s.baseDir
	cmd.Env = append(cmd.Environ(), environment(flowID, answers, cfg.Environment)...)
	cmd.Stdin = bytes.NewReader(payload)
	// Don't hang on grandchildren holding stderr open after a kill.
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("command %s: %w", cfg.Name, ctx.Err())
		}
		return fmt.Errorf("command %s failed: %v. Stderr: %s", cfg.Name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func environment(flowID string, answers domain.AnswerStore, extra map[string]string) []string {
	env := []string{EnvPrefix + "FLOW_ID=" + flowID}
	for k, v := range extra {
		env = append(env, k+"="+v)
	}

	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		var val string
		switch v := answers[id].Value().(type) {
		case nil:
			continue
		case string:
			val = v
		case float64:
			val = fmt.Sprintf("%g", v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			val = string(data)
		}
		key := envKeyUnsafe.ReplaceAllString(strings.ToUpper(id), "_")
		env = append(env, EnvPrefix+"ANSWER_"+key+"="+val)
	}
	return env
}
