package interview

import (
	"context"
	"errors"
	"sync"

	"github.com/prepdeck/prepdeck/internal/transcript"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyActive = errors.New("session already active")
)

// Manager tracks the live controllers, one per room. Each room has at most
// one controller instance, which is what makes the single-writer store
// assumption hold.
type Manager struct {
	mu          sync.RWMutex
	controllers map[string]*Controller
	store       transcript.Store
	onEnded     func(roomID, reason string)
}

func NewManager(store transcript.Store) *Manager {
	return &Manager{
		controllers: make(map[string]*Controller),
		store:       store,
	}
}

// SetEndedHook registers a callback invoked after a session is removed.
func (m *Manager) SetEndedHook(hook func(roomID, reason string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnded = hook
}

// Start creates and starts a controller for roomID. The caller's Terminate
// output is wrapped so the registry entry is removed on any exit path.
func (m *Manager) Start(roomID string, cfg ControllerConfig, out Outputs) (*Controller, error) {
	m.mu.Lock()
	if _, exists := m.controllers[roomID]; exists {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}

	innerTerminate := out.Terminate
	out.Terminate = func(reason string) {
		m.remove(roomID, reason)
		if innerTerminate != nil {
			innerTerminate(reason)
		}
	}

	ctrl := NewController(roomID, cfg, m.store, out)
	m.controllers[roomID] = ctrl
	m.mu.Unlock()

	ctrl.Start()
	return ctrl, nil
}

// Get returns the live controller for roomID.
func (m *Manager) Get(roomID string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctrl, ok := m.controllers[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return ctrl, nil
}

// End terminates one session, persisting its transcript if needed.
func (m *Manager) End(ctx context.Context, roomID, reason string) error {
	ctrl, err := m.Get(roomID)
	if err != nil {
		return err
	}
	return ctrl.End(ctx, reason)
}

// EndAll terminates every live session. Used on server shutdown so no
// in-flight interview loses its transcript.
func (m *Manager) EndAll(ctx context.Context, reason string) {
	m.mu.RLock()
	live := make([]*Controller, 0, len(m.controllers))
	for _, ctrl := range m.controllers {
		live = append(live, ctrl)
	}
	m.mu.RUnlock()

	for _, ctrl := range live {
		_ = ctrl.End(ctx, reason)
	}
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.controllers)
}

func (m *Manager) remove(roomID, reason string) {
	m.mu.Lock()
	_, ok := m.controllers[roomID]
	if ok {
		delete(m.controllers, roomID)
	}
	hook := m.onEnded
	m.mu.Unlock()

	if ok && hook != nil {
		hook(roomID, reason)
	}
}
