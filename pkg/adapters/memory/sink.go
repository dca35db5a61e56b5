package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Submission is one answer set received by a Sink.
type Submission struct {
	FlowID     string
	Answers    domain.AnswerStore
	ReceivedAt time.Time
}

// Sink implements ports.AnswerSink by recording submissions in memory.
// FailNext makes the following submissions fail, which hosts and tests use
// to exercise the retry path.
type Sink struct {
	mu          sync.Mutex
	submissions []Submission
	failures    []error
	attempts    int
}

// NewSink creates an empty recording sink.
func NewSink() *Sink {
	return &Sink{}
}

// FailNext queues errors returned by the next submissions, in order.
func (s *Sink) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// Submit records the answers unless a failure is queued.
func (s *Sink) Submit(ctx context.Context, flowID string, answers domain.AnswerStore) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++

	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}

	s.submissions = append(s.submissions, Submission{
		FlowID:     flowID,
		Answers:    answers.Clone(),
		ReceivedAt: time.Now().UTC(),
	})
	return nil
}

// Submissions returns the accepted submissions.
func (s *Sink) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Attempts counts every call to Submit, failed or not.
func (s *Sink) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
