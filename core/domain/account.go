package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is the tenant root.
type Account struct {
	ID uuid.UUID

	// PublicKey is opaque key material the auth collaborator uses to verify
	// bearer tokens issued for this account's users.
	PublicKey []byte

	WebhookURL        string
	WebhookSigningKey string

	CreatedAt time.Time
}

// HasWebhook reports whether the account has a webhook target configured.
func (a Account) HasWebhook() bool { return a.WebhookURL != "" }

// User belongs to an Account and owns Calendars, Schedules, and
// provider-integration credentials.
type User struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	ExternalID string // identifier supplied by the auth collaborator, e.g. token subject
	CreatedAt  time.Time
}
