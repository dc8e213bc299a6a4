package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredential() domain.ProviderCredential {
	return domain.ProviderCredential{
		ClientID:    "client-1",
		Secret:      "secret-1",
		AccessToken: "access-1",
	}
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) *PlaidGateway {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gateway, err := NewPlaidGateway(PlaidGatewayConfig{BaseURL: server.URL})
	require.NoError(t, err)
	return gateway
}

func TestNewPlaidGateway_Environments(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantErr     bool
	}{
		{name: "sandbox", environment: "sandbox"},
		{name: "development", environment: "development"},
		{name: "production", environment: "production"},
		{name: "defaults to sandbox", environment: ""},
		{name: "unknown", environment: "staging", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlaidGateway(PlaidGatewayConfig{Environment: tt.environment})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlaidGateway_Call_InjectsCredentials(t *testing.T) {
	var captured map[string]any
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts/get", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accounts":[]}`))
	})

	result, err := gateway.Call(context.Background(), testCredential(), "accounts/get", []byte(`{"options":{"count":5}}`))
	require.NoError(t, err)

	assert.Equal(t, "client-1", captured["client_id"])
	assert.Equal(t, "secret-1", captured["secret"])
	assert.Equal(t, "access-1", captured["access_token"])
	assert.Contains(t, captured, "options")
	assert.JSONEq(t, `{"accounts":[]}`, string(result.Payload))
	assert.Nil(t, result.NewCredential)
}

func TestPlaidGateway_Call_UnknownEndpoint(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the provider")
	})

	_, err := gateway.Call(context.Background(), testCredential(), "institutions/search", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownEndpoint)
}

func TestPlaidGateway_Call_MissingAccessToken(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the provider")
	})

	cred := domain.ProviderCredential{ClientID: "client-1", Secret: "secret-1"}
	_, err := gateway.Call(context.Background(), cred, "transactions/sync", nil)

	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.True(t, providerErr.ClientError())
	assert.Equal(t, "ITEM_NOT_LINKED", providerErr.Code)
}

func TestPlaidGateway_Call_ExchangeMintsCredential(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/item/public_token/exchange", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access-new","item_id":"item-9","request_id":"req-1"}`))
	})

	result, err := gateway.Call(context.Background(), testCredential(), "item/public_token/exchange",
		[]byte(`{"public_token":"public-sandbox-123"}`))
	require.NoError(t, err)

	require.NotNil(t, result.NewCredential)
	assert.Equal(t, "access-new", result.NewCredential.AccessToken)
	assert.Equal(t, "item-9", result.NewCredential.ItemID)
}

func TestPlaidGateway_Call_MalformedExchangeResponse(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"request_id":"req-1"}`))
	})

	_, err := gateway.Call(context.Background(), testCredential(), "item/public_token/exchange", nil)

	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, 502, providerErr.StatusCode)
}

func TestPlaidGateway_Call_ProviderError(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_type":"ITEM_ERROR","error_code":"ITEM_LOGIN_REQUIRED","error_message":"credentials changed","display_message":"internal detail"}`))
	})

	_, err := gateway.Call(context.Background(), testCredential(), "accounts/get", nil)

	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, 400, providerErr.StatusCode)
	assert.Equal(t, "ITEM_LOGIN_REQUIRED", providerErr.Code)
	assert.Equal(t, "credentials changed", providerErr.Message)
}

func TestPlaidGateway_Call_UnparseableProviderError(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>upstream exploded</html>`))
	})

	_, err := gateway.Call(context.Background(), testCredential(), "accounts/get", nil)

	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, 502, providerErr.StatusCode)
	// Raw provider internals never leak into the message.
	assert.NotContains(t, providerErr.Message, "exploded")
}

func TestPlaidGateway_Call_MalformedSuccessResponse(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	})

	_, err := gateway.Call(context.Background(), testCredential(), "accounts/get", nil)

	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
}

func TestPlaidGateway_Call_NonObjectBody(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the provider")
	})

	_, err := gateway.Call(context.Background(), testCredential(), "accounts/get", []byte(`[1,2,3]`))

	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, 400, providerErr.StatusCode)
}
