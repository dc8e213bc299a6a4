package agents

import (
	"context"
	"fmt"

	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
)

// configurationPhase is the generation gate embedded in an agent. It runs on
// the agent's goroutine, so transitions are already serialized and the struct
// carries no lock.
type configurationPhase struct {
	tenantID string
	secrets  domain.SecretsClient
	notifier domain.ConfigurationNotifier
	pipeline domain.PipelineControl

	state   domain.PhaseState
	pending *domain.PendingConfiguration
}

func newConfigurationPhase(tenantID string, secrets domain.SecretsClient, notifier domain.ConfigurationNotifier, pipeline domain.PipelineControl) *configurationPhase {
	return &configurationPhase{
		tenantID: tenantID,
		secrets:  secrets,
		notifier: notifier,
		pipeline: pipeline,
		state:    domain.PhaseIdle,
	}
}

// check runs the gate for one generation phase entry. With no unmet
// requirements it settles silently on Satisfied; otherwise it opens a card,
// emits exactly one configuration-request event, and pauses the pipeline.
// A repeat check while a card is open returns the existing card instead of
// emitting a duplicate.
func (p *configurationPhase) check(ctx context.Context, requirements []domain.ServiceRequirement) (domain.GateResult, error) {
	if p.state == domain.PhaseAwaitingConfiguration && p.pending != nil {
		return p.result(), nil
	}

	p.state = domain.PhaseCheckingRequirements

	unmet := make([]domain.ServiceRequirement, 0, len(requirements))
	configured := make(map[string]bool, len(requirements))
	for _, req := range requirements {
		has, err := p.secrets.Has(ctx, req.Provider)
		if err != nil {
			p.state = domain.PhaseIdle
			return domain.GateResult{}, fmt.Errorf("failed to check credential for %s: %w", req.Provider, err)
		}
		configured[req.Provider] = has
		if !has {
			unmet = append(unmet, req)
		}
	}

	if len(unmet) == 0 {
		p.state = domain.PhaseSatisfied
		p.pending = nil
		return p.result(), nil
	}

	p.pending = &domain.PendingConfiguration{
		CardID:     xid.New().String(),
		Required:   requirements,
		Configured: configured,
	}
	p.state = domain.PhaseAwaitingConfiguration

	event := domain.ConfigurationRequestedEvent{
		EventID:           uuid.NewString(),
		TenantID:          p.tenantID,
		CardID:            p.pending.CardID,
		RequiredProviders: p.cardRequirements(),
		Actions:           []domain.ActionType{domain.ActionSkip, domain.ActionContinue},
	}
	if err := p.notifier.NotifyConfigurationRequested(ctx, event); err != nil {
		log.Error().Err(err).
			Str("tenant_id", p.tenantID).
			Str("card_id", p.pending.CardID).
			Msg("Failed to publish configuration request event")
	}

	if err := p.pipeline.PauseGeneration(ctx, p.tenantID, p.pending.CardID); err != nil {
		log.Error().Err(err).
			Str("tenant_id", p.tenantID).
			Msg("Failed to pause generation pipeline")
	}

	return p.result(), nil
}

// apply handles an operator action. Actions referencing a card other than the
// currently pending one are ignored; they are leftovers from a previous gate.
func (p *configurationPhase) apply(ctx context.Context, action domain.ConfigurationAction) (domain.GateResult, error) {
	if p.state != domain.PhaseAwaitingConfiguration || p.pending == nil {
		return p.result(), nil
	}
	if action.CardID != p.pending.CardID {
		log.Debug().
			Str("tenant_id", p.tenantID).
			Str("card_id", action.CardID).
			Str("pending_card_id", p.pending.CardID).
			Msg("Ignoring configuration action for stale card")
		return p.result(), nil
	}

	switch action.Action {
	case domain.ActionSkip:
		p.satisfy(ctx)

	case domain.ActionServiceConnected:
		if action.ProviderID != "" {
			p.pending.Configured[action.ProviderID] = true
		}
		if p.pending.Satisfied() {
			p.satisfy(ctx)
		}

	case domain.ActionContinue:
		if p.pending.Satisfied() {
			p.satisfy(ctx)
		}

	default:
		return p.result(), fmt.Errorf("unknown configuration action %q", action.Action)
	}

	return p.result(), nil
}

// providerConnected records an in-band connection (operator stored a secret)
// against the open card, if any.
func (p *configurationPhase) providerConnected(ctx context.Context, provider string) {
	if p.state != domain.PhaseAwaitingConfiguration || p.pending == nil {
		return
	}
	if _, required := p.pending.Configured[provider]; !required {
		return
	}
	p.pending.Configured[provider] = true
	if p.pending.Satisfied() {
		p.satisfy(ctx)
	}
}

func (p *configurationPhase) satisfy(ctx context.Context) {
	p.state = domain.PhaseSatisfied
	p.pending = nil

	if err := p.pipeline.ResumeGeneration(ctx, p.tenantID); err != nil {
		log.Error().Err(err).
			Str("tenant_id", p.tenantID).
			Msg("Failed to resume generation pipeline")
	}
}

func (p *configurationPhase) cardRequirements() []domain.ProviderRequirement {
	if p.pending == nil {
		return nil
	}
	rows := make([]domain.ProviderRequirement, 0, len(p.pending.Required))
	for _, req := range p.pending.Required {
		status := domain.RequirementStatusPending
		if p.pending.Configured[req.Provider] {
			status = domain.RequirementStatusConnected
		}
		rows = append(rows, domain.ProviderRequirement{
			ID:       req.Provider,
			AuthType: req.AuthType,
			Status:   status,
		})
	}
	return rows
}

func (p *configurationPhase) result() domain.GateResult {
	result := domain.GateResult{State: p.state}
	if p.pending != nil {
		result.CardID = p.pending.CardID
		result.UnmetProviders = p.pending.Unmet()
	}
	return result
}
