package solver

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// apiKeyHeader carries the API key so it never appears in request URLs.
	apiKeyHeader = "x-goog-api-key"

	// tokenLifetime is the validity of a self-signed service-account JWT.
	tokenLifetime = time.Hour

	// tokenRefreshBuffer triggers signing a new token before expiry.
	tokenRefreshBuffer = 5 * time.Minute
)

// Authenticator adds credentials to an outgoing completion request.
type Authenticator interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// APIKeyAuth authenticates with a Google API key.
type APIKeyAuth struct {
	Key string
}

// Authorize sets the API key header.
func (a APIKeyAuth) Authorize(_ context.Context, req *http.Request) error {
	if a.Key == "" {
		return fmt.Errorf("API key is empty")
	}
	req.Header.Set(apiKeyHeader, a.Key)
	return nil
}

// serviceAccountKey is the subset of a Google service-account key file we use.
type serviceAccountKey struct {
	Type         string `json:"type"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
}

// ServiceAccountAuth authenticates with a self-signed RS256 JWT built from a
// service-account key. Tokens are cached until shortly before expiry.
type ServiceAccountAuth struct {
	mu sync.Mutex

	email    string
	keyID    string
	key      *rsa.PrivateKey
	audience string

	token     string
	expiresAt time.Time

	nowFunc func() time.Time
}

// ServiceAccountOption configures a ServiceAccountAuth.
type ServiceAccountOption func(*ServiceAccountAuth)

// WithNowFunc sets a custom time function for testing.
func WithNowFunc(fn func() time.Time) ServiceAccountOption {
	return func(a *ServiceAccountAuth) {
		a.nowFunc = fn
	}
}

// NewServiceAccountAuth parses a service-account key file's JSON. audience
// is the endpoint origin the tokens are minted for.
func NewServiceAccountAuth(keyJSON []byte, audience string, opts ...ServiceAccountOption) (*ServiceAccountAuth, error) {
	var sa serviceAccountKey
	if err := json.Unmarshal(keyJSON, &sa); err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}
	if sa.Type != "" && sa.Type != "service_account" {
		return nil, fmt.Errorf("unsupported credentials type %q", sa.Type)
	}
	if sa.ClientEmail == "" {
		return nil, fmt.Errorf("service account key has no client_email")
	}
	if audience == "" {
		return nil, fmt.Errorf("audience cannot be empty")
	}

	key, err := parsePrivateKey([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	a := &ServiceAccountAuth{
		email:    sa.ClientEmail,
		keyID:    sa.PrivateKeyID,
		key:      key,
		audience: audience,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// LoadServiceAccountAuth reads a key file and derives the audience from the
// endpoint.
func LoadServiceAccountAuth(path, endpoint string) (*ServiceAccountAuth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key: %w", err)
	}
	aud, err := AudienceFor(endpoint)
	if err != nil {
		return nil, err
	}
	return NewServiceAccountAuth(data, aud)
}

// AudienceFor returns the scheme://host/ origin of endpoint.
func AudienceFor(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: scheme and host required", endpoint)
	}
	return u.Scheme + "://" + u.Host + "/", nil
}

// Authorize sets a Bearer token, signing a new one when needed.
func (a *ServiceAccountAuth) Authorize(_ context.Context, req *http.Request) error {
	token, err := a.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Token returns the cached JWT or signs a fresh one.
func (a *ServiceAccountAuth) Token() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.nowFunc()
	if a.token != "" && now.Add(tokenRefreshBuffer).Before(a.expiresAt) {
		return a.token, nil
	}

	expiresAt := now.Add(tokenLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    a.email,
		Subject:   a.email,
		Audience:  jwt.ClaimStrings{a.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if a.keyID != "" {
		token.Header["kid"] = a.keyID
	}
	signed, err := token.SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	a.token = signed
	a.expiresAt = expiresAt
	return signed, nil
}

// parsePrivateKey parses a PEM-encoded RSA private key.
func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}

	return rsaKey, nil
}
