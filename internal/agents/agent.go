package agents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/rs/zerolog/log"
)

const (
	// providerCallTimeout bounds outbound provider calls so a stalled
	// upstream cannot wedge the agent's serialized queue.
	providerCallTimeout = 30 * time.Second

	// secretsCallTimeout bounds secrets-store round trips.
	secretsCallTimeout = 5 * time.Second

	inboxSize = 64
)

// ErrAgentStopped is returned for operations submitted after shutdown.
var ErrAgentStopped = errors.New("agent stopped")

// AgentDependencies carries everything a tenant agent owns.
type AgentDependencies struct {
	Secrets       domain.SecretsClient
	Gateways      map[string]domain.ProviderGateway
	Notifier      domain.ConfigurationNotifier
	Pipeline      domain.PipelineControl
	CredentialTTL time.Duration
}

// Agent is the per-tenant actor. It holds the only handle to the tenant's
// secrets and credential cache, and every operation runs on its single inbox
// goroutine in arrival order, so the cache and the configuration phase need
// no locks. Distinct tenants run fully independently.
type Agent struct {
	tenantID string
	secrets  domain.SecretsClient
	gateways map[string]domain.ProviderGateway
	cache    *credentialCache
	phase    *configurationPhase

	inbox   chan func()
	stopped chan struct{}
	done    chan struct{}
}

// NewAgent spawns the actor goroutine for one tenant.
func NewAgent(tenantID string, deps AgentDependencies) *Agent {
	pipeline := deps.Pipeline
	if pipeline == nil {
		pipeline = domain.NopPipelineControl{}
	}

	a := &Agent{
		tenantID: tenantID,
		secrets:  deps.Secrets,
		gateways: deps.Gateways,
		cache:    newCredentialCache(deps.CredentialTTL),
		phase:    newConfigurationPhase(tenantID, deps.Secrets, deps.Notifier, pipeline),
		inbox:    make(chan func(), inboxSize),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	go a.run()

	return a
}

func (a *Agent) run() {
	defer close(a.done)
	for {
		select {
		case task := <-a.inbox:
			task()
		case <-a.stopped:
			// Drain what was already accepted before stopping.
			for {
				select {
				case task := <-a.inbox:
					task()
				default:
					return
				}
			}
		}
	}
}

// Stop shuts the agent down after draining accepted work.
func (a *Agent) Stop() {
	select {
	case <-a.stopped:
	default:
		close(a.stopped)
	}
	<-a.done
}

// do runs fn on the agent goroutine and waits for it. If the caller's context
// expires after fn was accepted, fn still runs to completion in the
// background: an in-flight token exchange must persist its credential even
// when the sandbox has disconnected, its result is simply discarded.
func (a *Agent) do(ctx context.Context, fn func(opCtx context.Context)) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)

		// Operations run under their own deadline, detached from the
		// caller's context, so caller disconnects do not abort side effects.
		opCtx, cancel := context.WithTimeout(context.Background(), providerCallTimeout+2*secretsCallTimeout)
		defer cancel()
		fn(opCtx)
	}

	select {
	case a.inbox <- task:
	case <-a.stopped:
		return ErrAgentStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleProxyRequest resolves the provider credential, dispatches to the
// provider gateway, and returns a normalized, sandbox-safe result.
func (a *Agent) HandleProxyRequest(ctx context.Context, req domain.ProxyRequest) (domain.ProxyResult, error) {
	var result domain.ProxyResult
	err := a.do(ctx, func(opCtx context.Context) {
		result = a.handleProxy(opCtx, req)
	})
	if err != nil {
		return domain.ProxyResult{}, err
	}
	return result, nil
}

func (a *Agent) handleProxy(ctx context.Context, req domain.ProxyRequest) domain.ProxyResult {
	gateway, ok := a.gateways[req.Provider]
	if !ok {
		return errorResult(400, "unknown service", nil)
	}

	cred, found, err := a.resolveCredential(ctx, req.Provider)
	if err != nil {
		log.Error().Err(err).
			Str("tenant_id", a.tenantID).
			Str("provider", req.Provider).
			Msg("Failed to resolve provider credential")
		return errorResult(502, "failed to resolve credential", nil)
	}
	if !found {
		// Expected steady state before the operator connects the service,
		// not a fault. The flag tells the sandbox to prompt for connection.
		return errorResult(400, "service not connected", map[string]any{"needs_connection": true})
	}

	callCtx, cancel := context.WithTimeout(ctx, providerCallTimeout)
	defer cancel()

	callResult, err := gateway.Call(callCtx, cred, req.Endpoint, req.Body)
	if err != nil {
		return a.normalizeGatewayError(req.Provider, err)
	}

	// A freshly minted long-lived credential is persisted before success is
	// reported, so a crash after the provider call cannot silently drop it.
	if callResult.NewCredential != nil {
		if err := a.persistCredential(ctx, req.Provider, cred, *callResult.NewCredential); err != nil {
			log.Error().Err(err).
				Str("tenant_id", a.tenantID).
				Str("provider", req.Provider).
				Msg("Credential persistence failed after successful provider call")
			return errorResult(500, "provider call succeeded but credential was stored partially; re-initiate the exchange",
				map[string]any{"partially_completed": true})
		}
	}

	a.phase.providerConnected(ctx, req.Provider)

	return successResult(callResult.Payload)
}

func (a *Agent) resolveCredential(ctx context.Context, provider string) (domain.ProviderCredential, bool, error) {
	now := time.Now()
	if cred, ok := a.cache.get(provider, now); ok {
		return cred, true, nil
	}

	getCtx, cancel := context.WithTimeout(ctx, secretsCallTimeout)
	defer cancel()

	value, err := a.secrets.Get(getCtx, provider)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return domain.ProviderCredential{}, false, nil
	}
	if err != nil {
		return domain.ProviderCredential{}, false, err
	}

	cred, err := domain.ParseProviderCredential(value)
	if err != nil {
		return domain.ProviderCredential{}, false, err
	}

	a.cache.put(provider, cred, now)
	return cred, true, nil
}

func (a *Agent) persistCredential(ctx context.Context, provider string, current, minted domain.ProviderCredential) error {
	merged := current.Merge(minted)

	value, err := merged.Encode()
	if err != nil {
		return err
	}

	setCtx, cancel := context.WithTimeout(ctx, secretsCallTimeout)
	defer cancel()

	if err := a.secrets.Set(setCtx, provider, value); err != nil {
		return err
	}

	a.cache.put(provider, merged, time.Now())
	return nil
}

func (a *Agent) normalizeGatewayError(provider string, err error) domain.ProxyResult {
	if errors.Is(err, domain.ErrUnknownEndpoint) {
		return errorResult(400, "unknown endpoint", nil)
	}

	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		if providerErr.ClientError() {
			// The provider rejected the stored credential or the request;
			// the sandbox should prompt a reconnect rather than retry.
			return errorResult(400, providerErr.Error(), map[string]any{"reconnect_required": true})
		}
		return errorResult(502, providerErr.Error(), map[string]any{"status": providerErr.StatusCode})
	}

	log.Error().Err(err).
		Str("tenant_id", a.tenantID).
		Str("provider", provider).
		Msg("Provider call failed")
	return errorResult(502, "provider request failed", nil)
}

// CheckConfiguration runs the generation gate against the given requirements.
func (a *Agent) CheckConfiguration(ctx context.Context, requirements []domain.ServiceRequirement) (domain.GateResult, error) {
	var (
		result   domain.GateResult
		checkErr error
	)
	err := a.do(ctx, func(opCtx context.Context) {
		result, checkErr = a.phase.check(opCtx, requirements)
	})
	if err != nil {
		return domain.GateResult{}, err
	}
	return result, checkErr
}

// ApplyConfigurationAction handles an operator decision on the pending card.
func (a *Agent) ApplyConfigurationAction(ctx context.Context, action domain.ConfigurationAction) (domain.GateResult, error) {
	var (
		result   domain.GateResult
		applyErr error
	)
	err := a.do(ctx, func(opCtx context.Context) {
		result, applyErr = a.phase.apply(opCtx, action)
	})
	if err != nil {
		return domain.GateResult{}, err
	}
	return result, applyErr
}

// ConnectProvider stores the operator-supplied credential and counts the
// provider as connected on the pending card, if one is open.
func (a *Agent) ConnectProvider(ctx context.Context, provider string, cred domain.ProviderCredential) error {
	var connectErr error
	err := a.do(ctx, func(opCtx context.Context) {
		value, encErr := cred.Encode()
		if encErr != nil {
			connectErr = encErr
			return
		}

		setCtx, cancel := context.WithTimeout(opCtx, secretsCallTimeout)
		defer cancel()

		if setErr := a.secrets.Set(setCtx, provider, value); setErr != nil {
			connectErr = setErr
			return
		}

		a.cache.put(provider, cred, time.Now())
		a.phase.providerConnected(opCtx, provider)
	})
	if err != nil {
		return err
	}
	return connectErr
}

// DisconnectProvider removes the stored credential and purges the cache.
func (a *Agent) DisconnectProvider(ctx context.Context, provider string) error {
	var disconnectErr error
	err := a.do(ctx, func(opCtx context.Context) {
		delCtx, cancel := context.WithTimeout(opCtx, secretsCallTimeout)
		defer cancel()

		disconnectErr = a.secrets.Delete(delCtx, provider)
		a.cache.invalidate(provider)
	})
	if err != nil {
		return err
	}
	return disconnectErr
}

// PendingConfiguration snapshots the open card, if any.
func (a *Agent) PendingConfiguration(ctx context.Context) (domain.GateResult, bool, error) {
	var (
		result domain.GateResult
		open   bool
	)
	err := a.do(ctx, func(context.Context) {
		result = a.phase.result()
		open = a.phase.pending != nil
	})
	if err != nil {
		return domain.GateResult{}, false, err
	}
	return result, open, nil
}

func successResult(payload json.RawMessage) domain.ProxyResult {
	envelope := map[string]any{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &envelope); err != nil {
			// Non-object provider payloads are carried under a data key.
			envelope = map[string]any{}
			var value any
			if err := json.Unmarshal(payload, &value); err == nil {
				envelope["data"] = value
			}
		}
	}
	envelope["success"] = true

	body, err := json.Marshal(envelope)
	if err != nil {
		return errorResult(502, "failed to encode response", nil)
	}
	return domain.ProxyResult{Status: 200, Body: body}
}

func errorResult(status int, message string, extra map[string]any) domain.ProxyResult {
	envelope := map[string]any{
		"success": false,
		"error":   message,
	}
	for key, value := range extra {
		envelope[key] = value
	}

	body, _ := json.Marshal(envelope)
	return domain.ProxyResult{Status: status, Body: body}
}
