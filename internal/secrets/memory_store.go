package secrets

import (
	"context"
	"sync"

	"github.com/forgelink/forgelink/pkg/domain"
)

// MemoryStore keeps provider secrets in process memory. Suitable for a
// single-node deployment and for tests; secrets do not survive restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string // tenantID → provider → value
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]map[string]string),
	}
}

// ForTenant returns the tenant-scoped view handed to that tenant's agent.
func (s *MemoryStore) ForTenant(tenantID string) domain.SecretsClient {
	return &memoryClient{store: s, tenantID: tenantID}
}

type memoryClient struct {
	store    *MemoryStore
	tenantID string
}

func (c *memoryClient) Has(ctx context.Context, provider string) (bool, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	_, ok := c.store.values[c.tenantID][provider]
	return ok, nil
}

func (c *memoryClient) Get(ctx context.Context, provider string) (string, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	value, ok := c.store.values[c.tenantID][provider]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (c *memoryClient) Set(ctx context.Context, provider string, value string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	tenant, ok := c.store.values[c.tenantID]
	if !ok {
		tenant = make(map[string]string)
		c.store.values[c.tenantID] = tenant
	}
	tenant[provider] = value
	return nil
}

func (c *memoryClient) Delete(ctx context.Context, provider string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	delete(c.store.values[c.tenantID], provider)
	return nil
}
