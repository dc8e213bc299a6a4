package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// TokenMaxAge is how long a preview token stays valid after issuance.
	// There is no revocation list: a token outlives its sandbox session and
	// ages out naturally.
	TokenMaxAge = 24 * time.Hour

	// clockSkewTolerance bounds how far in the future a token timestamp may
	// sit before it is treated as a forgery. Small drift between the issuing
	// and verifying process is tolerated; anything beyond is rejected.
	clockSkewTolerance = 5 * time.Second

	tokenDelimiter = "."
	tokenParts     = 3
)

// ErrInvalidToken is the single failure outcome of Verify. Malformed input,
// a bad signature, and an expired timestamp all collapse into it so callers
// cannot distinguish causes.
var ErrInvalidToken = errors.New("invalid preview token")

// PreviewTokenCodec issues and verifies the bearer tokens handed to sandboxed
// preview apps. Tokens are stateless: tenant id, issuance time, and an
// HMAC-SHA256 over both, joined by dots with base64url-encoded segments.
type PreviewTokenCodec struct {
	secret []byte
}

// NewPreviewTokenCodec builds a codec around the process-wide signing secret.
// An empty secret is a configuration error; the codec fails closed rather
// than issuing unsigned tokens.
func NewPreviewTokenCodec(secret string) (*PreviewTokenCodec, error) {
	if secret == "" {
		return nil, errors.New("preview token signing secret is required")
	}
	return &PreviewTokenCodec{secret: []byte(secret)}, nil
}

// Issue mints a token for tenantID at the given instant. Deterministic:
// identical inputs produce identical tokens.
func (c *PreviewTokenCodec) Issue(tenantID string, now time.Time) (string, error) {
	if tenantID == "" {
		return "", errors.New("tenant id is required")
	}

	issuedAt := strconv.FormatInt(now.UnixMilli(), 10)
	mac := c.computeMAC(tenantID, issuedAt)

	return strings.Join([]string{
		base64.RawURLEncoding.EncodeToString([]byte(tenantID)),
		issuedAt,
		base64.RawURLEncoding.EncodeToString(mac),
	}, tokenDelimiter), nil
}

// Verify checks a transmitted token against the signing secret and the clock
// and returns the owning tenant id. Every failure returns ErrInvalidToken.
func (c *PreviewTokenCodec) Verify(token string, now time.Time) (string, error) {
	parts := strings.Split(token, tokenDelimiter)
	if len(parts) != tokenParts {
		return "", ErrInvalidToken
	}

	tenantBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || len(tenantBytes) == 0 {
		return "", ErrInvalidToken
	}
	tenantID := string(tenantBytes)

	issuedAtMillis, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}

	issuedAt := time.UnixMilli(issuedAtMillis)
	if issuedAt.After(now.Add(clockSkewTolerance)) {
		return "", ErrInvalidToken
	}
	if now.Sub(issuedAt) > TokenMaxAge {
		return "", ErrInvalidToken
	}

	transmittedMAC, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidToken
	}

	expectedMAC := c.computeMAC(tenantID, parts[1])
	if !hmac.Equal(expectedMAC, transmittedMAC) {
		return "", ErrInvalidToken
	}

	return tenantID, nil
}

func (c *PreviewTokenCodec) computeMAC(tenantID, issuedAt string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(mac, "%s%s%s", tenantID, tokenDelimiter, issuedAt)
	return mac.Sum(nil)
}
