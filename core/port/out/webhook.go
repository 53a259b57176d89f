package out

import (
	"context"

	"scheduler_server/core/domain"
)

// WebhookPayload is the signed body delivered to an account's webhook URL.
type WebhookPayload struct {
	Event     string `json:"event"`
	AccountID string `json:"account_id"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Webhook is the outbound port for delivering domain events to an account's
// configured webhook endpoint. Delivery failures are logged by the caller
// and never propagated back into the triggering operation.
type Webhook interface {
	Deliver(ctx context.Context, account *domain.Account, payload WebhookPayload) error
}
