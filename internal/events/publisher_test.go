package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() domain.ConfigurationRequestedEvent {
	return domain.ConfigurationRequestedEvent{
		EventID:  "event-1",
		TenantID: "tenant-1",
		CardID:   "card-1",
		RequiredProviders: []domain.ProviderRequirement{
			{ID: "plaid", AuthType: domain.AuthTypeOAuth, Status: domain.RequirementStatusPending},
		},
		Actions: []domain.ActionType{domain.ActionSkip, domain.ActionContinue},
	}
}

func TestChannelNotifier_Delivers(t *testing.T) {
	notifier := NewChannelNotifier(4)

	require.NoError(t, notifier.NotifyConfigurationRequested(context.Background(), testEvent()))

	select {
	case event := <-notifier.Events():
		assert.Equal(t, "card-1", event.CardID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestChannelNotifier_DropsWhenFull(t *testing.T) {
	notifier := NewChannelNotifier(1)

	// A full channel must not block the emitting agent.
	require.NoError(t, notifier.NotifyConfigurationRequested(context.Background(), testEvent()))
	require.NoError(t, notifier.NotifyConfigurationRequested(context.Background(), testEvent()))
}

func TestWebhookNotifier_Delivers(t *testing.T) {
	var received domain.ConfigurationRequestedEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, time.Second)
	require.NoError(t, notifier.NotifyConfigurationRequested(context.Background(), testEvent()))

	assert.Equal(t, "tenant-1", received.TenantID)
	assert.Equal(t, "card-1", received.CardID)
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, time.Second)
	err := notifier.NotifyConfigurationRequested(context.Background(), testEvent())
	assert.Error(t, err)
}
