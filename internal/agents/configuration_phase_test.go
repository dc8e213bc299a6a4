package agents

import (
	"context"
	"testing"

	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plaidRequirement() []domain.ServiceRequirement {
	return []domain.ServiceRequirement{
		{Provider: "plaid", AuthType: domain.AuthTypeOAuth},
	}
}

func TestConfigurationPhase_EmptyRequirements_SatisfiedSilently(t *testing.T) {
	f := newAgentFixture(t)

	result, err := f.agent.CheckConfiguration(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseSatisfied, result.State)
	assert.Empty(t, result.CardID)
	assert.Zero(t, f.notifier.count())
	assert.Zero(t, f.pipeline.pauseCount())
}

func TestConfigurationPhase_AlreadyConfigured_SatisfiedSilently(t *testing.T) {
	f := newAgentFixture(t)
	f.connectPlaid(t)

	result, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseSatisfied, result.State)
	assert.Zero(t, f.notifier.count())
}

func TestConfigurationPhase_UnmetRequirement_OpensCard(t *testing.T) {
	f := newAgentFixture(t)

	result, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseAwaitingConfiguration, result.State)
	assert.NotEmpty(t, result.CardID)
	assert.Equal(t, []string{"plaid"}, result.UnmetProviders)

	require.Equal(t, 1, f.notifier.count())
	event := f.notifier.last()
	assert.Equal(t, result.CardID, event.CardID)
	assert.Equal(t, "tenant-1", event.TenantID)
	require.Len(t, event.RequiredProviders, 1)
	assert.Equal(t, "plaid", event.RequiredProviders[0].ID)
	assert.Equal(t, domain.AuthTypeOAuth, event.RequiredProviders[0].AuthType)
	assert.Equal(t, domain.RequirementStatusPending, event.RequiredProviders[0].Status)
	assert.Equal(t, []domain.ActionType{domain.ActionSkip, domain.ActionContinue}, event.Actions)

	assert.Equal(t, 1, f.pipeline.pauseCount())
}

func TestConfigurationPhase_RepeatCheck_ReturnsExistingCard(t *testing.T) {
	f := newAgentFixture(t)

	first, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)

	second, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)

	assert.Equal(t, first.CardID, second.CardID)
	assert.Equal(t, 1, f.notifier.count(), "a repeat check must not emit a duplicate event")
	assert.Equal(t, 1, f.pipeline.pauseCount())
}

func TestConfigurationPhase_ServiceConnected_Satisfies(t *testing.T) {
	f := newAgentFixture(t)

	opened, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAwaitingConfiguration, opened.State)

	result, err := f.agent.ApplyConfigurationAction(context.Background(), domain.ConfigurationAction{
		CardID:     opened.CardID,
		Action:     domain.ActionServiceConnected,
		ProviderID: "plaid",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseSatisfied, result.State)
	assert.Equal(t, 1, f.pipeline.resumeCount())
}

func TestConfigurationPhase_StaleCardID_Ignored(t *testing.T) {
	f := newAgentFixture(t)

	opened, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)

	result, err := f.agent.ApplyConfigurationAction(context.Background(), domain.ConfigurationAction{
		CardID:     "card-from-a-previous-gate",
		Action:     domain.ActionServiceConnected,
		ProviderID: "plaid",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseAwaitingConfiguration, result.State)
	assert.Equal(t, opened.CardID, result.CardID)
	assert.Equal(t, []string{"plaid"}, result.UnmetProviders)
	assert.Zero(t, f.pipeline.resumeCount())
}

func TestConfigurationPhase_Skip_SatisfiesWithUnmetRequirements(t *testing.T) {
	f := newAgentFixture(t)

	opened, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)

	result, err := f.agent.ApplyConfigurationAction(context.Background(), domain.ConfigurationAction{
		CardID: opened.CardID,
		Action: domain.ActionSkip,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseSatisfied, result.State)
	assert.Equal(t, 1, f.pipeline.resumeCount())
}

func TestConfigurationPhase_Continue_RequiresAllConnected(t *testing.T) {
	f := newAgentFixture(t)

	requirements := []domain.ServiceRequirement{
		{Provider: "plaid", AuthType: domain.AuthTypeOAuth},
		{Provider: "stripe", AuthType: domain.AuthTypeAPIKey},
	}

	opened, err := f.agent.CheckConfiguration(context.Background(), requirements)
	require.NoError(t, err)

	// Continue with unmet requirements keeps the gate open.
	result, err := f.agent.ApplyConfigurationAction(context.Background(), domain.ConfigurationAction{
		CardID: opened.CardID,
		Action: domain.ActionContinue,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAwaitingConfiguration, result.State)
	assert.ElementsMatch(t, []string{"plaid", "stripe"}, result.UnmetProviders)

	// Connect both, then continue succeeds.
	for _, provider := range []string{"plaid", "stripe"} {
		_, err = f.agent.ApplyConfigurationAction(context.Background(), domain.ConfigurationAction{
			CardID:     opened.CardID,
			Action:     domain.ActionServiceConnected,
			ProviderID: provider,
		})
		require.NoError(t, err)
	}

	final, _, err := f.agent.PendingConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseSatisfied, final.State)
}

func TestConfigurationPhase_ConnectProvider_CountsTowardCard(t *testing.T) {
	f := newAgentFixture(t)

	opened, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAwaitingConfiguration, opened.State)

	// Storing the secret through the operator channel satisfies the card
	// without an explicit service_connected action.
	f.connectPlaid(t)

	result, open, err := f.agent.PendingConfiguration(context.Background())
	require.NoError(t, err)
	assert.False(t, open)
	assert.Equal(t, domain.PhaseSatisfied, result.State)
	assert.Equal(t, 1, f.pipeline.resumeCount())
}

func TestConfigurationPhase_ReopensAfterSatisfied(t *testing.T) {
	f := newAgentFixture(t)

	opened, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)

	_, err = f.agent.ApplyConfigurationAction(context.Background(), domain.ConfigurationAction{
		CardID: opened.CardID,
		Action: domain.ActionSkip,
	})
	require.NoError(t, err)

	// A later generation phase runs the gate again and gets a fresh card.
	reopened, err := f.agent.CheckConfiguration(context.Background(), plaidRequirement())
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseAwaitingConfiguration, reopened.State)
	assert.NotEqual(t, opened.CardID, reopened.CardID)
	assert.Equal(t, 2, f.notifier.count())
}
