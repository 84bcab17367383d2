// Package credential abstracts how the model endpoint is authenticated:
// either a static API key or a bearer token obtained through an OAuth2
// client-credentials flow and refreshed on demand.
package credential

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	KindAPIKey      = "api_key"
	KindBearerToken = "bearer_token"

	// expiryMargin is how close to expiry a token may get before it is
	// treated as stale even if the refresh interval has not elapsed.
	expiryMargin = 60 * time.Second
)

// Credential is the value the API client borrows per call. Ownership of
// refresh state stays inside the Provider.
type Credential struct {
	Kind  string
	Value string
}

type Provider interface {
	Current(ctx context.Context) (Credential, error)
}

// StaticKeyProvider serves a fixed API key. It never refreshes.
type StaticKeyProvider struct {
	key string
}

func NewStaticKeyProvider(key string) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

func (p *StaticKeyProvider) Current(ctx context.Context) (Credential, error) {
	if p.key == "" {
		return Credential{}, fmt.Errorf("credential: api key is empty")
	}
	return Credential{Kind: KindAPIKey, Value: p.key}, nil
}

// TokenFunc fetches a fresh token. Split out so tests can substitute the
// network call.
type TokenFunc func(ctx context.Context) (*oauth2.Token, error)

// BearerProvider caches the last token and refreshes when it has aged past
// the refresh interval or is about to expire. Safe for concurrent use by
// every session; last writer wins, which is fine for idempotent bearer
// credentials.
type BearerProvider struct {
	fetch           TokenFunc
	refreshInterval time.Duration
	now             func() time.Time

	mu       sync.Mutex
	token    *oauth2.Token
	issuedAt time.Time
}

// NewBearerProvider builds a provider over the client-credentials flow.
func NewBearerProvider(tokenURL, clientID, clientSecret, scope string, refreshInterval time.Duration) *BearerProvider {
	cfg := &clientcredentials.Config{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{scope},
	}
	return NewBearerProviderWithFetcher(cfg.Token, refreshInterval)
}

func NewBearerProviderWithFetcher(fetch TokenFunc, refreshInterval time.Duration) *BearerProvider {
	return &BearerProvider{
		fetch:           fetch,
		refreshInterval: refreshInterval,
		now:             time.Now,
	}
}

func (p *BearerProvider) Current(ctx context.Context) (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stale() {
		token, err := p.fetch(ctx)
		if err != nil {
			return Credential{}, fmt.Errorf("credential: token refresh: %w", err)
		}
		p.token = token
		p.issuedAt = p.now()
	}

	return Credential{Kind: KindBearerToken, Value: p.token.AccessToken}, nil
}

func (p *BearerProvider) stale() bool {
	if p.token == nil || p.token.AccessToken == "" {
		return true
	}
	if p.now().Sub(p.issuedAt) >= p.refreshInterval {
		return true
	}
	expiry := p.token.Expiry
	if expiry.IsZero() {
		expiry = jwtExpiry(p.token.AccessToken)
	}
	if !expiry.IsZero() && p.now().After(expiry.Add(-expiryMargin)) {
		return true
	}
	return false
}

// jwtExpiry pulls the exp claim out of a JWT access token for providers
// that omit expires_in from the token response. The token is not verified
// here; it is only inspected for scheduling.
func jwtExpiry(raw string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
