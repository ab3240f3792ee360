package rpc

import (
	"sync"
	"time"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/domain"
)

var _ domain.DispatcherFactory = &CallManager{}

// CallManager owns the outbound call channels to every worker process on the
// node. There is exactly one per node manager; WorkerHandles hold it as a
// non-owned reference and never close it. At most one client exists per
// worker address.
type CallManager struct {
	mu          sync.Mutex
	clients     map[string]*Client
	dialTimeout time.Duration
	logger      primary.Logger
}

// CallManagerOption configures a CallManager
type CallManagerOption func(*CallManager)

// WithDialTimeout sets the per-dial timeout
func WithDialTimeout(timeout time.Duration) CallManagerOption {
	return func(m *CallManager) {
		m.dialTimeout = timeout
	}
}

// NewCallManager creates the shared call-dispatch manager
func NewCallManager(logger primary.Logger, options ...CallManagerOption) *CallManager {
	manager := &CallManager{
		clients:     make(map[string]*Client),
		dialTimeout: 10 * time.Second,
		logger:      logger,
	}
	for _, option := range options {
		option(manager)
	}
	return manager
}

// Dispatcher returns the call channel for a worker address, creating it on
// first use. No dialing happens here; an unreachable address fails on the
// first dispatch.
func (m *CallManager) Dispatcher(host string, port int) domain.TaskDispatcher {
	client := newClient(host, port, m.dialTimeout, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.clients[client.address]; ok {
		return existing
	}
	m.clients[client.address] = client
	return client
}

// Close tears down every outbound connection. Called once at node shutdown.
func (m *CallManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for address, client := range m.clients {
		if err := client.close(); err != nil {
			m.logger.Error("Failed to close worker client", "address", address, "error", err)
		}
		delete(m.clients, address)
	}
}
