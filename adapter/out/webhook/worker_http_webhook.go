// Package webhook delivers domain events to accounts' configured HTTP
// endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

const (
	signatureHeader = "X-Scheduler-Signature"
	deliveryTimeout = 10 * time.Second
)

// HTTPNotifier implements out.Webhook, POSTing a JSON payload to the
// account's webhook URL and signing the body with HMAC-SHA256 over the
// account's webhook signing key so receivers can verify authenticity.
type HTTPNotifier struct {
	client *http.Client
}

func NewHTTPNotifier() *HTTPNotifier {
	return &HTTPNotifier{client: &http.Client{Timeout: deliveryTimeout}}
}

func (n *HTTPNotifier) Deliver(ctx context.Context, account *domain.Account, payload out.WebhookPayload) error {
	if !account.HasWebhook() {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, account.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, sign(account.WebhookSigningKey, body))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook endpoint returned status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

func sign(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ out.Webhook = (*HTTPNotifier)(nil)
