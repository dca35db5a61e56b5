package cli

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Submission is the document written by WriterSink.
type Submission struct {
	FlowID  string             `json:"flow_id"`
	Answers domain.AnswerStore `json:"answers"`
}

// WriterSink writes each submission as one JSON line.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

func (s *WriterSink) Submit(ctx context.Context, flowID string, answers domain.AnswerStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(Submission{FlowID: flowID, Answers: answers})
}
