package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Submission is one stored answer set.
type Submission struct {
	ID          int64              `json:"id"`
	FlowID      string             `json:"flow_id"`
	FlowName    string             `json:"flow_name"`
	Answers     domain.AnswerStore `json:"answers"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// Sink implements ports.AnswerSink on the submissions table.
// A flow ID is stored once; resubmitting it is a no-op, so hosts may retry
// freely after an ambiguous failure.
type Sink struct {
	db       *DB
	flowName string
	now      func() time.Time
}

// Sink returns an answer sink tagging rows with flowName.
func (d *DB) Sink(flowName string) *Sink {
	return &Sink{db: d, flowName: flowName, now: time.Now}
}

// Submit stores the answers as JSON.
func (s *Sink) Submit(ctx context.Context, flowID string, answers domain.AnswerStore) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO submissions (flow_id, flow_name, answers, submitted_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(flow_id) DO NOTHING`,
		flowID, s.flowName, string(data), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store submission: %w", err)
	}
	return nil
}

// Submissions lists stored submissions for this sink's flow name, oldest first.
func (s *Sink) Submissions(ctx context.Context) ([]Submission, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT id, flow_id, flow_name, answers, submitted_at
		FROM submissions WHERE flow_name = ? ORDER BY id`, s.flowName)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var (
			sub     Submission
			answers string
			at      string
		)
		if err := rows.Scan(&sub.ID, &sub.FlowID, &sub.FlowName, &answers, &at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &sub.Answers); err != nil {
			return nil, fmt.Errorf("submission %d: %w", sub.ID, err)
		}
		if sub.SubmittedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("submission %d: %w", sub.ID, err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
