package system

import (
	"context"
	"fmt"
	"sync"
)

// Manager owns the registered services and drives their lifecycle. Services
// start in registration order and stop in reverse.
type Manager struct {
	mu       sync.Mutex
	services []Service
	names    map[string]struct{}
	started  bool
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{names: make(map[string]struct{})}
}

// Register adds a service to the registry. Names must be unique; registering
// after Start is an error.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("system: nil service")
	}
	name := svc.Name()
	if name == "" {
		return fmt.Errorf("system: service name is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("system: cannot register %s after start", name)
	}
	if _, exists := m.names[name]; exists {
		return fmt.Errorf("system: service %s already registered", name)
	}

	m.names[name] = struct{}{}
	m.services = append(m.services, svc)
	return nil
}

// Start starts every registered service in order. On failure, services that
// already started are stopped in reverse before the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("system: already started")
	}

	for i, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.services[j].Stop(ctx)
			}
			return fmt.Errorf("system: start %s: %w", svc.Name(), err)
		}
	}
	m.started = true
	return nil
}

// Stop stops every service in reverse registration order. All services are
// stopped even if some fail; the first error is returned.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}

	var firstErr error
	for i := len(m.services) - 1; i >= 0; i-- {
		if err := m.services[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("system: stop %s: %w", m.services[i].Name(), err)
		}
	}
	m.started = false
	return firstErr
}

// Names lists the registered service names in registration order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.services))
	for _, svc := range m.services {
		names = append(names, svc.Name())
	}
	return names
}
