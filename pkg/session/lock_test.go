package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/stepwise/pkg/domain"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, flowID string, state *domain.FlowState) error {
	return nil
}
func (nopStore) Load(ctx context.Context, flowID string) (*domain.FlowState, error) {
	return domain.NewFlowState(flowID, 0), nil
}
func (nopStore) Delete(ctx context.Context, flowID string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)      { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("flow-%d", i)
		_ = mgr.Save(ctx, id, domain.NewFlowState(id, 0))
		_, _ = mgr.Update(ctx, id, func(ctx context.Context, s *domain.FlowState) (*domain.FlowState, error) {
			return s, nil
		})
		_ = mgr.Delete(ctx, id)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
