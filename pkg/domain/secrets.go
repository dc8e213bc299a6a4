package domain

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned by SecretsClient.Get when no credential is
// stored for the requested provider.
var ErrSecretNotFound = errors.New("secret not found")

// SecretsClient is a per-tenant view of the credential store. The agent that
// owns a tenant holds the only handle to that tenant's client; nothing else in
// the process reads or writes provider secrets.
type SecretsClient interface {
	Has(ctx context.Context, provider string) (bool, error)
	Get(ctx context.Context, provider string) (string, error)
	Set(ctx context.Context, provider string, value string) error
	Delete(ctx context.Context, provider string) error
}

// SecretsStore hands out tenant-scoped SecretsClient views.
type SecretsStore interface {
	ForTenant(tenantID string) SecretsClient
}
