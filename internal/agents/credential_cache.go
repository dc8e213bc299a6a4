package agents

import (
	"time"

	"github.com/forgelink/forgelink/pkg/domain"
)

// defaultCredentialTTL bounds how long a resolved credential is served from
// memory before the secrets store is consulted again. Disconnects purge
// entries immediately; the TTL only covers out-of-band rotation.
const defaultCredentialTTL = 5 * time.Minute

type cachedCredential struct {
	credential domain.ProviderCredential
	fetchedAt  time.Time
	ttl        time.Duration
}

func (c cachedCredential) expired(now time.Time) bool {
	return now.Sub(c.fetchedAt) > c.ttl
}

// credentialCache is the agent-private credential map. It is only ever
// touched from the agent's own goroutine, so it carries no lock.
type credentialCache struct {
	entries map[string]cachedCredential
	ttl     time.Duration
}

func newCredentialCache(ttl time.Duration) *credentialCache {
	if ttl <= 0 {
		ttl = defaultCredentialTTL
	}
	return &credentialCache{
		entries: make(map[string]cachedCredential),
		ttl:     ttl,
	}
}

func (c *credentialCache) get(provider string, now time.Time) (domain.ProviderCredential, bool) {
	entry, ok := c.entries[provider]
	if !ok {
		return domain.ProviderCredential{}, false
	}
	if entry.expired(now) {
		delete(c.entries, provider)
		return domain.ProviderCredential{}, false
	}
	return entry.credential, true
}

func (c *credentialCache) put(provider string, cred domain.ProviderCredential, now time.Time) {
	c.entries[provider] = cachedCredential{
		credential: cred,
		fetchedAt:  now,
		ttl:        c.ttl,
	}
}

func (c *credentialCache) invalidate(provider string) {
	delete(c.entries, provider)
}
