package http

import (
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"
)

// AccountHandler provisions new tenants. It sits outside the AccountAuth
// group, guarded instead by a shared creation secret, since no account (and
// therefore no per-account bearer token) exists yet at provisioning time.
type AccountHandler struct {
	accounts out.AccountRepository
}

func NewAccountHandler(accounts out.AccountRepository) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) Register(api fiber.Router) {
	api.Post("/accounts", h.CreateAccount)
}

type createAccountBody struct {
	WebhookURL        string `json:"webhook_url,omitempty"`
	WebhookSigningKey string `json:"webhook_signing_key,omitempty"`
}

type createAccountResponse struct {
	AccountID  uuid.UUID `json:"account_id"`
	PrivateKey string    `json:"private_key"` // base64 Ed25519 seed, returned once
	PublicKey  string    `json:"public_key"`  // base64 Ed25519 public key, stored on the account
}

// CreateAccount generates an Ed25519 keypair for the tenant and stores the
// public half; the private half is returned once and never persisted, so
// callers must hold onto it to sign bearer tokens for their users.
func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var body createAccountBody
	if err := c.BodyParser(&body); err != nil {
		return ErrorResponseWithCode(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return InternalErrorResponse(c, err, "generate account keypair")
	}

	account := &domain.Account{
		ID:                uuid.New(),
		PublicKey:         pub,
		WebhookURL:        body.WebhookURL,
		WebhookSigningKey: body.WebhookSigningKey,
		CreatedAt:         time.Now().UTC(),
	}
	if err := h.accounts.Insert(c.Context(), account); err != nil {
		return InternalErrorResponse(c, err, "create account")
	}

	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success: true,
		Data: createAccountResponse{
			AccountID:  account.ID,
			PrivateKey: base64.StdEncoding.EncodeToString(priv.Seed()),
			PublicKey:  base64.StdEncoding.EncodeToString(pub),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
