package domain

// AuthType describes how a provider authenticates its API consumers.
type AuthType string

const (
	AuthTypeOAuth  AuthType = "oauth"
	AuthTypeAPIKey AuthType = "api_key"
)

// ServiceRequirement is one external service a build depends on. Requirements
// are derived from the build's blueprint per configuration check and are not
// persisted on their own.
type ServiceRequirement struct {
	Provider string   `json:"provider"`
	AuthType AuthType `json:"auth_type"`
}

// PhaseState is the configuration gate's position in its state machine.
type PhaseState string

const (
	PhaseIdle                  PhaseState = "idle"
	PhaseCheckingRequirements  PhaseState = "checking_requirements"
	PhaseAwaitingConfiguration PhaseState = "awaiting_configuration"
	PhaseSatisfied             PhaseState = "satisfied"
)

// ActionType is an operator decision on a pending configuration card.
type ActionType string

const (
	ActionSkip             ActionType = "skip"
	ActionContinue         ActionType = "continue"
	ActionServiceConnected ActionType = "service_connected"
)

// ConfigurationAction is the operator channel → agent message.
type ConfigurationAction struct {
	CardID     string     `json:"card_id"`
	Action     ActionType `json:"action"`
	ProviderID string     `json:"provider_id,omitempty"`
}

// PendingConfiguration is the agent-held state of an open gate. At most one
// exists per agent at a time.
type PendingConfiguration struct {
	CardID     string
	Required   []ServiceRequirement
	Configured map[string]bool
}

// Unmet lists required providers not yet configured, in requirement order.
func (p PendingConfiguration) Unmet() []string {
	var unmet []string
	for _, req := range p.Required {
		if !p.Configured[req.Provider] {
			unmet = append(unmet, req.Provider)
		}
	}
	return unmet
}

// Satisfied reports whether every required provider has been configured.
func (p PendingConfiguration) Satisfied() bool {
	return len(p.Unmet()) == 0
}

// GateResult is the outcome of a configuration check or action.
type GateResult struct {
	State          PhaseState `json:"state"`
	CardID         string     `json:"card_id,omitempty"`
	UnmetProviders []string   `json:"unmet_providers,omitempty"`
}
