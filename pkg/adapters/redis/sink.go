package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultStream receives submitted answer sets.
const DefaultStream = "stepwise:submissions"

// Sink implements ports.AnswerSink by appending each submission to a Redis stream.
// Consumers read the stream with XREAD or a consumer group.
type Sink struct {
	client *backend.Client
	stream string
	maxLen int64
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithStream sets the stream key.
func WithStream(stream string) SinkOption {
	return func(s *Sink) {
		s.stream = stream
	}
}

// WithMaxLen caps the stream length (approximate trimming).
func WithMaxLen(n int64) SinkOption {
	return func(s *Sink) {
		s.maxLen = n
	}
}

// NewSink creates a stream sink over an existing client.
func NewSink(client *backend.Client, opts ...SinkOption) *Sink {
	s := &Sink{client: client, stream: DefaultStream}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit adds one entry with the flow ID and the answers as JSON.
func (s *Sink) Submit(ctx context.Context, flowID string, answers domain.AnswerStore) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	args := &backend.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"flow_id":      flowID,
			"answers":      string(data),
			"submitted_at": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append submission: %w", err)
	}
	return nil
}
