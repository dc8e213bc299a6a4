package domain

import "context"

// RequirementStatus is the connection state of one provider on a card.
type RequirementStatus string

const (
	RequirementStatusConnected RequirementStatus = "connected"
	RequirementStatusPending   RequirementStatus = "pending"
)

// ProviderRequirement is one row of a configuration card.
type ProviderRequirement struct {
	ID       string            `json:"id"`
	AuthType AuthType          `json:"auth_type"`
	Status   RequirementStatus `json:"status"`
}

// ConfigurationRequestedEvent is pushed to the operator channel when a gate
// opens. Exactly one event is emitted per card.
type ConfigurationRequestedEvent struct {
	EventID           string                `json:"event_id"`
	TenantID          string                `json:"tenant_id"`
	CardID            string                `json:"card_id"`
	RequiredProviders []ProviderRequirement `json:"required_providers"`
	Actions           []ActionType          `json:"actions"`
}

// ConfigurationNotifier is the agent's push capability toward whatever
// operator-facing channel the deployment wires in. The agent makes no
// assumption about the transport behind it.
type ConfigurationNotifier interface {
	NotifyConfigurationRequested(ctx context.Context, event ConfigurationRequestedEvent) error
}
