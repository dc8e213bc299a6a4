package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrUnknownEndpoint is returned by a ProviderGateway for endpoints outside
// its operation table. The router forwards paths verbatim, so this is the
// layer that decides what the sandbox may reach.
var ErrUnknownEndpoint = errors.New("unknown provider endpoint")

// ProxyRequest is a sandbox call forwarded by the router to a tenant agent.
// Arguments are plain serializable values so the agent boundary can become a
// network hop in a distributed deployment without changing the contract.
type ProxyRequest struct {
	Provider string              `json:"provider"`
	Endpoint string              `json:"endpoint"`
	Method   string              `json:"method"`
	Headers  map[string][]string `json:"headers,omitempty"` // token header already stripped
	Body     []byte              `json:"body,omitempty"`
}

// ProxyResult is the agent's answer, returned to the sandbox verbatim.
type ProxyResult struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// ProviderError is a normalized upstream failure. Message carries only what
// the provider declared safe to show (its error code and message), never the
// raw response payload.
type ProviderError struct {
	StatusCode int    // provider's HTTP status
	Code       string // provider-declared error code, if any
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// ClientError reports whether the provider rejected the call itself (bad or
// expired credential, invalid request) as opposed to failing internally.
func (e *ProviderError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// CallResult is the outcome of a successful gateway operation.
type CallResult struct {
	Payload json.RawMessage

	// NewCredential is set when the provider minted a long-lived credential
	// during the call (a public-token exchange). The agent must persist it
	// before reporting success to the caller.
	NewCredential *ProviderCredential
}

// ProviderGateway performs the outbound call to one external provider family
// on behalf of an agent, given the resolved credential.
type ProviderGateway interface {
	Call(ctx context.Context, cred ProviderCredential, endpoint string, body []byte) (CallResult, error)
}
