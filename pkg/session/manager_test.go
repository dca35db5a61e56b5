package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/definitions"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.FlowState
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, flowID string, state *domain.FlowState) error {
	time.Sleep(10 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.FlowState)
	}
	s.data[flowID] = state.Snapshot()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, flowID string) (*domain.FlowState, error) {
	time.Sleep(10 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.data[flowID]; ok {
		return state.Snapshot(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, flowID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func checkin(t *testing.T) *stepwise.Engine {
	t.Helper()
	def, err := definitions.Load("mood-checkin")
	require.NoError(t, err)
	eng, err := stepwise.Compile(def)
	require.NoError(t, err)
	return eng
}

func TestManager_UpdateIsSerialised(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Save(ctx, id, domain.NewFlowState(id, 0)))

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(ctx context.Context, s *domain.FlowState) (*domain.FlowState, error) {
				s.SubmitAttempts++
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, state.SubmitAttempts, "no update may be lost")
}

func TestManager_LoadOrStart(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	eng := checkin(t)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := manager.LoadOrStart(ctx, id, eng)
			assert.NoError(t, err)
			assert.NotNil(t, state)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, state.FlowID)
	assert.Equal(t, 0, state.StepIndex)
}

func TestManager_UpdateDrivesEngine(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	eng := checkin(t)
	ctx := context.Background()

	_, err := manager.LoadOrStart(ctx, "flow-1", eng)
	require.NoError(t, err)

	t.Run("Saves Progress", func(t *testing.T) {
		state, err := manager.Update(ctx, "flow-1", func(ctx context.Context, s *domain.FlowState) (*domain.FlowState, error) {
			next, res := eng.Select(ctx, s, "happy")
			return next, res.Err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, state.StepIndex)

		stored, err := store.Load(ctx, "flow-1")
		require.NoError(t, err)
		assert.Equal(t, 1, stored.StepIndex)
	})

	t.Run("Keeps State On Error", func(t *testing.T) {
		boom := errors.New("boom")
		state, err := manager.Update(ctx, "flow-1", func(ctx context.Context, s *domain.FlowState) (*domain.FlowState, error) {
			return s, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NotNil(t, state)
	})

	t.Run("Deletes Abandoned Flow", func(t *testing.T) {
		_, err := manager.Update(ctx, "flow-1", func(ctx context.Context, s *domain.FlowState) (*domain.FlowState, error) {
			next, res := eng.Abandon(ctx, s)
			return next, res.Err
		})
		require.NoError(t, err)

		_, err = store.Load(ctx, "flow-1")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Missing Flow", func(t *testing.T) {
		_, err := manager.Update(ctx, "missing", func(ctx context.Context, s *domain.FlowState) (*domain.FlowState, error) {
			return s, nil
		})
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

type countingLocker struct {
	mu    sync.Mutex
	locks int
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.locks++
	l.mu.Unlock()
	return func(context.Context) error { return errors.New("already expired") }, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "flow", domain.NewFlowState("flow", 0)))
	_, err := manager.Load(ctx, "flow")
	require.NoError(t, err, "a failed unlock is logged, not returned")
	assert.Equal(t, 2, locker.locks)
}
