package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// StateStore defines the interface for persisting flow state.
// Hosts use it to resume a flow after a restart or across requests.
type StateStore interface {
	// Save persists the state for a given flow ID.
	Save(ctx context.Context, flowID string, state *domain.FlowState) error

	// Load retrieves the state for a given flow ID.
	// Returns domain.ErrSessionNotFound if the flow does not exist.
	Load(ctx context.Context, flowID string) (*domain.FlowState, error)

	// Delete removes the state for a given flow ID.
	Delete(ctx context.Context, flowID string) error

	// List returns the IDs of all persisted flows.
	List(ctx context.Context) ([]string, error)
}
