package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates flow access, serialising operations on the same flow ID.
// Unused locks are garbage collected by reference counting.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking.
func (m *Manager) acquire(flowID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[flowID]
	if !exists {
		entry = &lockEntry{}
		m.locks[flowID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(flowID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[flowID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, flowID)
	}
}

// Load retrieves an existing flow from the store.
func (m *Manager) Load(ctx context.Context, flowID string) (*domain.FlowState, error) {
	var state *domain.FlowState
	err := m.WithLock(ctx, flowID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, flowID)
		return err
	})
	return state, err
}

// LoadOrStart loads a flow, or starts and persists a new one under flowID.
func (m *Manager) LoadOrStart(ctx context.Context, flowID string, engine ports.FlowEngine) (*domain.FlowState, error) {
	var state *domain.FlowState
	err := m.WithLock(ctx, flowID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, flowID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check flow existence: %w", err)
		}

		state, err = engine.Start(ctx, flowID)
		if err != nil {
			return err
		}
		// Persist immediately to reserve the ID.
		if err := m.store.Save(ctx, state.FlowID, state); err != nil {
			return fmt.Errorf("failed to initialize flow: %w", err)
		}
		return nil
	})
	return state, err
}

// Update loads a flow, applies fn and persists the result, all under the flow lock.
// Submitted and abandoned flows are removed from the store instead of saved.
// The state returned by fn is returned even when fn fails, so callers can
// report outcomes such as a failed submission.
func (m *Manager) Update(ctx context.Context, flowID string, fn func(context.Context, *domain.FlowState) (*domain.FlowState, error)) (*domain.FlowState, error) {
	var next *domain.FlowState
	err := m.WithLock(ctx, flowID, func(ctx context.Context) error {
		state, err := m.store.Load(ctx, flowID)
		if err != nil {
			return err
		}

		var fnErr error
		next, fnErr = fn(ctx, state)
		if next == nil {
			return fnErr
		}

		var perr error
		switch next.Status {
		case domain.StatusSubmitted, domain.StatusAbandoned:
			perr = m.store.Delete(ctx, flowID)
		default:
			perr = m.store.Save(ctx, flowID, next)
		}
		if perr != nil {
			m.logger.Warn("failed to persist flow", "flow", flowID, "err", perr)
		}
		return errors.Join(fnErr, perr)
	})
	return next, err
}

// Save persists the flow state.
func (m *Manager) Save(ctx context.Context, flowID string, state *domain.FlowState) error {
	return m.WithLock(ctx, flowID, func(ctx context.Context) error {
		return m.store.Save(ctx, flowID, state)
	})
}

// Delete removes the flow from the store.
func (m *Manager) Delete(ctx context.Context, flowID string) error {
	return m.WithLock(ctx, flowID, func(ctx context.Context) error {
		return m.store.Delete(ctx, flowID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes fn while holding the lock for the flow.
func (m *Manager) WithLock(ctx context.Context, flowID string, fn func(context.Context) error) error {
	entry := m.acquire(flowID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(flowID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, flowID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"flow_id", flowID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
