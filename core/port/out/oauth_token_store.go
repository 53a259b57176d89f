package out

import (
	"context"
	"time"
)

// OAuthToken is a stored third-party calendar credential for one user and
// provider.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// OAuthTokenStore persists the OAuth credentials CalendarProviderFactory
// needs to act on a user's behalf against an external calendar provider.
// Save is also the refresh callback: implementations overwrite the prior
// token for (provider, userID).
type OAuthTokenStore interface {
	Get(ctx context.Context, provider, userID string) (*OAuthToken, error)
	Save(ctx context.Context, provider, userID string, token OAuthToken) error
}
