package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/rs/zerolog/log"
)

// ChannelNotifier pushes configuration events onto an in-process buffered
// channel. The single-node deployment drains it into the operator UI; tests
// drain it directly. Events are dropped with a warning when nothing consumes
// them, because a slow operator channel must never block a tenant agent.
type ChannelNotifier struct {
	events chan domain.ConfigurationRequestedEvent
}

func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelNotifier{
		events: make(chan domain.ConfigurationRequestedEvent, buffer),
	}
}

func (n *ChannelNotifier) NotifyConfigurationRequested(ctx context.Context, event domain.ConfigurationRequestedEvent) error {
	select {
	case n.events <- event:
		return nil
	default:
		log.Warn().
			Str("tenant_id", event.TenantID).
			Str("card_id", event.CardID).
			Msg("Dropping configuration event, channel full")
		return nil
	}
}

// Events exposes the consumer side of the channel.
func (n *ChannelNotifier) Events() <-chan domain.ConfigurationRequestedEvent {
	return n.events
}

// WebhookNotifier POSTs configuration events to an operator-facing endpoint.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) NotifyConfigurationRequested(ctx context.Context, event domain.ConfigurationRequestedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode configuration event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver configuration event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	log.Debug().
		Str("tenant_id", event.TenantID).
		Str("card_id", event.CardID).
		Msg("Configuration event delivered")

	return nil
}
