package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestStaticKeyProvider(t *testing.T) {
	p := NewStaticKeyProvider("secret")

	cred, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindAPIKey, cred.Kind)
	assert.Equal(t, "secret", cred.Value)
}

func TestStaticKeyProviderEmpty(t *testing.T) {
	_, err := NewStaticKeyProvider("").Current(context.Background())
	assert.Error(t, err)
}

func TestBearerProviderFetchesOnce(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (*oauth2.Token, error) {
		calls++
		return &oauth2.Token{
			AccessToken: "tok-1",
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	}
	p := NewBearerProviderWithFetcher(fetch, 30*time.Minute)

	for i := 0; i < 3; i++ {
		cred, err := p.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, KindBearerToken, cred.Kind)
		assert.Equal(t, "tok-1", cred.Value)
	}
	assert.Equal(t, 1, calls)
}

func TestBearerProviderRefreshesAfterInterval(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (*oauth2.Token, error) {
		calls++
		return &oauth2.Token{
			AccessToken: "tok",
			Expiry:      time.Now().Add(24 * time.Hour),
		}, nil
	}
	p := NewBearerProviderWithFetcher(fetch, 30*time.Minute)

	now := time.Now()
	p.now = func() time.Time { return now }

	_, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// Within the interval: cached.
	now = now.Add(10 * time.Minute)
	_, err = p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// Past the interval: refreshed.
	now = now.Add(25 * time.Minute)
	_, err = p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestBearerProviderRefreshesNearExpiry(t *testing.T) {
	calls := 0
	expiry := time.Now().Add(30 * time.Second) // inside the safety margin
	fetch := func(ctx context.Context) (*oauth2.Token, error) {
		calls++
		return &oauth2.Token{AccessToken: "tok", Expiry: expiry}, nil
	}
	p := NewBearerProviderWithFetcher(fetch, time.Hour)

	_, err := p.Current(context.Background())
	require.NoError(t, err)
	_, err = p.Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestBearerProviderFetchError(t *testing.T) {
	wantErr := errors.New("identity provider down")
	p := NewBearerProviderWithFetcher(func(ctx context.Context) (*oauth2.Token, error) {
		return nil, wantErr
	}, time.Minute)

	_, err := p.Current(context.Background())
	assert.ErrorIs(t, err, wantErr)
}
