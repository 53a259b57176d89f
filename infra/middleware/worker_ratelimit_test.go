package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func newTestApp(rl *AdvancedRateLimiter) *fiber.App {
	app := fiber.New()
	app.Use(rl.Handler())
	app.Get("/*", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func doGet(t *testing.T, app *fiber.App, path string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request to %s: %v", path, err)
	}
	return resp.StatusCode
}

// Regression test for the exact-vs-substring matching fix: the provisioning
// endpoint's limit must not also apply to account-scoped routes that merely
// contain its pattern as a path prefix.
func TestAdvancedRateLimiterExactProvisioningPatternDoesNotMatchAccountScopedPaths(t *testing.T) {
	rl := NewAdvancedRateLimiter(RateLimitConfig{IPLimit: 10_000, UserLimit: 10_000, Window: time.Minute})
	app := newTestApp(rl)

	accountScopedPath := "/api/v1/accounts/11111111-1111-1111-1111-111111111111/events"
	for i := 0; i < 11; i++ {
		status := doGet(t, app, accountScopedPath)
		if status == fiber.StatusTooManyRequests {
			t.Fatalf("request %d to an account-scoped path was throttled by the exact-matched provisioning limit (10/min); the /events substring limit (120/min) should apply instead", i+1)
		}
	}
}

func TestAdvancedRateLimiterExactProvisioningPatternStillLimitsItself(t *testing.T) {
	rl := NewAdvancedRateLimiter(RateLimitConfig{IPLimit: 10_000, UserLimit: 10_000, Window: time.Minute})
	app := newTestApp(rl)

	var last int
	for i := 0; i < 11; i++ {
		last = doGet(t, app, "/api/v1/accounts")
	}
	if last != fiber.StatusTooManyRequests {
		t.Fatalf("expected the 11th request to the exact provisioning path within a minute to be throttled, got status %d", last)
	}
}

func TestAdvancedRateLimiterSubstringEndpointMatchesVariableAccountSegment(t *testing.T) {
	rl := NewAdvancedRateLimiter(RateLimitConfig{IPLimit: 10_000, UserLimit: 10_000, Window: time.Minute})
	app := newTestApp(rl)

	path := "/api/v1/accounts/22222222-2222-2222-2222-222222222222/booking-intents"
	status := doGet(t, app, path)
	if status != fiber.StatusOK {
		t.Fatalf("expected first request to succeed, got status %d", status)
	}
}
