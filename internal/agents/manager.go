package agents

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/rs/zerolog/log"
)

// ErrManagerStopped is returned for lookups after Shutdown.
var ErrManagerStopped = errors.New("agent manager stopped")

// ManagerDependencies is everything needed to spawn tenant agents.
type ManagerDependencies struct {
	Secrets       domain.SecretsStore
	Gateways      map[string]domain.ProviderGateway
	Notifier      domain.ConfigurationNotifier
	Pipeline      domain.PipelineControl
	CredentialTTL time.Duration
}

// Manager owns the tenant→agent registry. Agents are spawned lazily on first
// use and live until shutdown; each one serializes its own tenant's work.
type Manager struct {
	deps ManagerDependencies

	mu      sync.RWMutex
	agents  map[string]*Agent
	stopped bool
}

func NewManager(deps ManagerDependencies) *Manager {
	return &Manager{
		deps:   deps,
		agents: make(map[string]*Agent),
	}
}

// GetOrCreate returns the tenant's agent, spawning it on first use.
func (m *Manager) GetOrCreate(tenantID string) (*Agent, error) {
	m.mu.RLock()
	agent, ok := m.agents[tenantID]
	stopped := m.stopped
	m.mu.RUnlock()

	if stopped {
		return nil, ErrManagerStopped
	}
	if ok {
		return agent, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, ErrManagerStopped
	}
	if agent, ok := m.agents[tenantID]; ok {
		return agent, nil
	}

	agent = NewAgent(tenantID, AgentDependencies{
		Secrets:       m.deps.Secrets.ForTenant(tenantID),
		Gateways:      m.deps.Gateways,
		Notifier:      m.deps.Notifier,
		Pipeline:      m.deps.Pipeline,
		CredentialTTL: m.deps.CredentialTTL,
	})
	m.agents[tenantID] = agent

	log.Debug().Str("tenant_id", tenantID).Msg("Spawned tenant agent")

	return agent, nil
}

// Shutdown stops every agent, draining accepted work, and rejects further
// lookups. Returns once all agents stopped or the context expired.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = true
	agents := make([]*Agent, 0, len(m.agents))
	for _, agent := range m.agents {
		agents = append(agents, agent)
	}
	m.agents = make(map[string]*Agent)
	m.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		for _, agent := range agents {
			agent.Stop()
		}
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
