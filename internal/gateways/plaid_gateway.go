package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/forgelink/forgelink/pkg/domain"

	"github.com/rs/zerolog/log"
)

// Plaid-style environments and their base URLs.
var plaidEnvironments = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// plaidOperation describes one whitelisted endpoint.
type plaidOperation struct {
	path string

	// needsAccessToken operations inject the item access token; the others
	// run on client credentials alone.
	needsAccessToken bool

	// mintsCredential marks the public-token exchange, whose response hands
	// back a long-lived access token the agent must persist.
	mintsCredential bool
}

var plaidOperations = map[string]plaidOperation{
	"link/token/create":          {path: "/link/token/create"},
	"item/public_token/exchange": {path: "/item/public_token/exchange", mintsCredential: true},
	"accounts/get":               {path: "/accounts/get", needsAccessToken: true},
	"transactions/sync":          {path: "/transactions/sync", needsAccessToken: true},
	"item/remove":                {path: "/item/remove", needsAccessToken: true},
}

// plaidErrorBody is the subset of a provider error response that is safe to
// surface: the declared code and message, never the raw payload.
type plaidErrorBody struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type plaidExchangeBody struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// PlaidGatewayConfig configures the outbound client.
type PlaidGatewayConfig struct {
	Environment string // sandbox, development, or production
	BaseURL     string // overrides the environment URL when set (tests)
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// PlaidGateway performs the real calls to the Plaid-style provider. It is
// stateless; credentials arrive per call from the owning agent.
type PlaidGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewPlaidGateway builds a gateway for the configured environment.
func NewPlaidGateway(config PlaidGatewayConfig) (*PlaidGateway, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		env := config.Environment
		if env == "" {
			env = "sandbox"
		}
		url, ok := plaidEnvironments[env]
		if !ok {
			return nil, fmt.Errorf("unknown provider environment %q", env)
		}
		baseURL = url
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &PlaidGateway{
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// Call dispatches one whitelisted operation with the resolved credential.
func (g *PlaidGateway) Call(ctx context.Context, cred domain.ProviderCredential, endpoint string, body []byte) (domain.CallResult, error) {
	op, ok := plaidOperations[endpoint]
	if !ok {
		return domain.CallResult{}, domain.ErrUnknownEndpoint
	}

	request := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &request); err != nil {
			return domain.CallResult{}, &domain.ProviderError{
				StatusCode: 400,
				Code:       "INVALID_REQUEST",
				Message:    "request body is not a JSON object",
			}
		}
	}

	request["client_id"] = cred.ClientID
	request["secret"] = cred.Secret
	if op.needsAccessToken {
		if cred.AccessToken == "" {
			return domain.CallResult{}, &domain.ProviderError{
				StatusCode: 400,
				Code:       "ITEM_NOT_LINKED",
				Message:    "no access token for this service; complete the link flow first",
			}
		}
		request["access_token"] = cred.AccessToken
	}

	payload, err := g.doRequest(ctx, op.path, request)
	if err != nil {
		return domain.CallResult{}, err
	}

	result := domain.CallResult{Payload: payload}

	if op.mintsCredential {
		var exchange plaidExchangeBody
		if err := json.Unmarshal(payload, &exchange); err != nil || exchange.AccessToken == "" {
			return domain.CallResult{}, &domain.ProviderError{
				StatusCode: 502,
				Message:    "provider returned a malformed exchange response",
			}
		}
		result.NewCredential = &domain.ProviderCredential{
			AccessToken: exchange.AccessToken,
			ItemID:      exchange.ItemID,
		}
	}

	return result, nil
}

func (g *PlaidGateway) doRequest(ctx context.Context, path string, request map[string]any) (json.RawMessage, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, g.normalizeError(resp.StatusCode, path, responseBody)
	}

	if !json.Valid(responseBody) {
		return nil, &domain.ProviderError{
			StatusCode: resp.StatusCode,
			Message:    "provider returned a malformed response",
		}
	}

	return responseBody, nil
}

func (g *PlaidGateway) normalizeError(status int, path string, body []byte) *domain.ProviderError {
	var parsed plaidErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.ErrorCode == "" {
		log.Warn().
			Int("status", status).
			Str("path", path).
			Msg("Provider error response could not be parsed")
		return &domain.ProviderError{
			StatusCode: status,
			Message:    "provider request failed",
		}
	}

	return &domain.ProviderError{
		StatusCode: status,
		Code:       parsed.ErrorCode,
		Message:    parsed.ErrorMessage,
	}
}
