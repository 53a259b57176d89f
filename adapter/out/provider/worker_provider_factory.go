// Package provider implements outbound adapters to third-party calendar
// providers and the factory that resolves them per user.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
	"scheduler_server/pkg/ratelimit"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

const (
	ProviderGoogle  = "google"
	ProviderOutlook = "outlook"
)

// OAuthConfig holds the client credentials for one external provider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TenantID     string // Outlook only; "common" if unset.
}

// FactoryConfig holds all provider configurations.
type FactoryConfig struct {
	Google  *OAuthConfig
	Outlook *OAuthConfig
}

// CalendarProviderFactory implements out.CalendarProviderFactory. Each
// provider gets its own circuit breaker so a Google outage doesn't also
// reject Outlook calls, and vice versa.
type CalendarProviderFactory struct {
	googleConfig  *OAuthConfig
	outlookConfig *OAuthConfig
	tokens        out.OAuthTokenStore
	breakers      map[string]*gobreaker.CircuitBreaker
	limiter       *ratelimit.SlidingWindowLimiter
}

// NewCalendarProviderFactory builds a factory for the configured providers.
// limiter may be nil, in which case outbound calls are only guarded by the
// per-provider circuit breaker.
func NewCalendarProviderFactory(cfg *FactoryConfig, tokens out.OAuthTokenStore, limiter *ratelimit.SlidingWindowLimiter) *CalendarProviderFactory {
	f := &CalendarProviderFactory{
		googleConfig:  cfg.Google,
		outlookConfig: cfg.Outlook,
		tokens:        tokens,
		breakers:      make(map[string]*gobreaker.CircuitBreaker),
		limiter:       limiter,
	}
	for _, name := range []string{ProviderGoogle, ProviderOutlook} {
		provider := name
		f.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "calendar-provider:" + provider,
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.ConsecutiveFailures > 5 || (counts.Requests >= 10 && failureRatio >= 0.6)
			},
		})
	}
	return f
}

func (f *CalendarProviderFactory) oauthConfig(provider string) (*oauth2.Config, error) {
	switch provider {
	case ProviderGoogle:
		if f.googleConfig == nil {
			return nil, fmt.Errorf("google calendar oauth config not set")
		}
		return &oauth2.Config{
			ClientID:     f.googleConfig.ClientID,
			ClientSecret: f.googleConfig.ClientSecret,
			RedirectURL:  f.googleConfig.RedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
			Endpoint:     google.Endpoint,
		}, nil
	case ProviderOutlook:
		if f.outlookConfig == nil {
			return nil, fmt.Errorf("outlook calendar oauth config not set")
		}
		tenantID := f.outlookConfig.TenantID
		if tenantID == "" {
			tenantID = "common"
		}
		return &oauth2.Config{
			ClientID:     f.outlookConfig.ClientID,
			ClientSecret: f.outlookConfig.ClientSecret,
			RedirectURL:  f.outlookConfig.RedirectURL,
			Scopes: []string{
				"https://graph.microsoft.com/Calendars.ReadWrite",
				"offline_access",
			},
			Endpoint: microsoft.AzureADEndpoint(tenantID),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported calendar provider: %s", provider)
	}
}

// For resolves a CalendarProvider for userID's stored credentials,
// wrapping every call the returned provider makes in a per-provider
// circuit breaker.
func (f *CalendarProviderFactory) For(ctx context.Context, provider string, userID string) (out.CalendarProvider, error) {
	cfg, err := f.oauthConfig(provider)
	if err != nil {
		return nil, err
	}

	stored, err := f.tokens.Get(ctx, provider, userID)
	if err != nil {
		return nil, fmt.Errorf("load oauth token: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("no oauth credentials for provider %s, user %s", provider, userID)
	}

	token := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.Expiry,
	}
	src := &persistingTokenSource{
		inner:    cfg.TokenSource(ctx, token),
		tokens:   f.tokens,
		provider: provider,
		userID:   userID,
		last:     token.AccessToken,
	}
	client := oauth2.NewClient(ctx, src)
	if f.limiter != nil {
		client.Transport = &protectedTransport{
			inner:   client.Transport,
			limiter: f.limiter,
			key:     provider + ":" + userID,
		}
	}

	breaker := f.breakers[provider]
	var inner out.CalendarProvider
	switch provider {
	case ProviderGoogle:
		inner = NewGoogleCalendarProvider(client)
	case ProviderOutlook:
		inner = NewOutlookCalendarProvider(client)
	}

	return &breakingProvider{inner: inner, breaker: breaker}, nil
}

// persistingTokenSource wraps an oauth2.TokenSource and writes refreshed
// tokens back to the store so the next For() call doesn't re-trigger a
// refresh with a stale refresh token.
type persistingTokenSource struct {
	inner    oauth2.TokenSource
	tokens   out.OAuthTokenStore
	provider string
	userID   string
	last     string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		_ = s.tokens.Save(context.Background(), s.provider, s.userID, out.OAuthToken{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
		})
	}
	return tok, nil
}

// protectedTransport throttles outbound calls to one provider's API per
// user through a Redis-backed sliding window, so a single noisy user can't
// exhaust that provider's rate budget for everyone else. It runs inside the
// breaker-wrapped provider methods: a throttled call returns an error that
// the provider's circuit breaker counts as a failure.
type protectedTransport struct {
	inner   http.RoundTripper
	limiter *ratelimit.SlidingWindowLimiter
	key     string
}

func (t *protectedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	allowed, wait := t.limiter.Allow(req.Context(), t.key)
	if !allowed {
		return nil, fmt.Errorf("provider call throttled, retry in %s", wait)
	}

	inner := t.inner
	if inner == nil {
		inner = http.DefaultTransport
	}
	return inner.RoundTrip(req)
}

// breakingProvider wraps a CalendarProvider so every call trips or resets
// the owning provider's circuit breaker.
type breakingProvider struct {
	inner   out.CalendarProvider
	breaker *gobreaker.CircuitBreaker
}

func (p *breakingProvider) List(ctx context.Context, minAccessRole string) ([]out.ProviderCalendar, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.inner.List(ctx, minAccessRole)
	})
	if err != nil {
		return nil, err
	}
	return result.([]out.ProviderCalendar), nil
}

func (p *breakingProvider) Freebusy(ctx context.Context, calendarIDs []string, span domain.TimeSpan) ([]domain.EventInstance, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.inner.Freebusy(ctx, calendarIDs, span)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.EventInstance), nil
}

func (p *breakingProvider) CreateEvent(ctx context.Context, calendarID string, event *domain.CalendarEvent) (string, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.inner.CreateEvent(ctx, calendarID, event)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (p *breakingProvider) UpdateEvent(ctx context.Context, calendarID, extEventID string, event *domain.CalendarEvent) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.inner.UpdateEvent(ctx, calendarID, extEventID, event)
	})
	return err
}

func (p *breakingProvider) DeleteEvent(ctx context.Context, calendarID, extEventID string) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.inner.DeleteEvent(ctx, calendarID, extEventID)
	})
	return err
}

var _ out.CalendarProviderFactory = (*CalendarProviderFactory)(nil)
