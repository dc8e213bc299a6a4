package domain

import (
	"encoding/json"
	"fmt"
)

// ProviderCredential is the decoded form of the secret value stored for a
// provider: the client credentials connected by the operator, plus the
// long-lived access token once a token exchange has completed.
type ProviderCredential struct {
	ClientID    string `json:"client_id,omitempty"`
	Secret      string `json:"secret,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	ItemID      string `json:"item_id,omitempty"`
}

// ParseProviderCredential decodes a stored secret value.
func ParseProviderCredential(value string) (ProviderCredential, error) {
	var cred ProviderCredential
	if err := json.Unmarshal([]byte(value), &cred); err != nil {
		return ProviderCredential{}, fmt.Errorf("failed to decode provider credential: %w", err)
	}
	return cred, nil
}

// Encode returns the wire form stored in the secrets store.
func (c ProviderCredential) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode provider credential: %w", err)
	}
	return string(raw), nil
}

// Merge overlays non-empty fields of other onto c and returns the result.
// Used when a token exchange mints an access token that must be persisted
// without discarding the operator-connected client credentials.
func (c ProviderCredential) Merge(other ProviderCredential) ProviderCredential {
	merged := c
	if other.ClientID != "" {
		merged.ClientID = other.ClientID
	}
	if other.Secret != "" {
		merged.Secret = other.Secret
	}
	if other.AccessToken != "" {
		merged.AccessToken = other.AccessToken
	}
	if other.ItemID != "" {
		merged.ItemID = other.ItemID
	}
	return merged
}
