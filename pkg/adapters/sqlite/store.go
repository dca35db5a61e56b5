package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Store implements ports.StateStore on the flows table.
type Store struct {
	db *DB
}

// Store returns the flow state store of this database.
func (d *DB) Store() *Store {
	return &Store{db: d}
}

// Save upserts the flow state as JSON.
func (s *Store) Save(ctx context.Context, flowID string, state *domain.FlowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO flows (flow_id, state, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(flow_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		flowID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	return nil
}

// Load reads the flow state.
func (s *Store) Load(ctx context.Context, flowID string) (*domain.FlowState, error) {
	var data string
	err := s.db.db.QueryRowContext(ctx, `SELECT state FROM flows WHERE flow_id = ?`, flowID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load flow: %w", err)
	}

	var state domain.FlowState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow state: %w", err)
	}
	if state.Answers == nil {
		state.Answers = make(domain.AnswerStore)
	}
	return &state, nil
}

// Delete removes the flow state.
func (s *Store) Delete(ctx context.Context, flowID string) error {
	if _, err := s.db.db.ExecContext(ctx, `DELETE FROM flows WHERE flow_id = ?`, flowID); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return nil
}

// List returns stored flow IDs, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.db.QueryContext(ctx, `SELECT flow_id FROM flows ORDER BY updated_at DESC, flow_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
