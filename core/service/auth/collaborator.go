// Package auth implements in.AuthCollaborator: verifying a caller's bearer
// token against their account's registered public key and resolving the
// caller to a User record, provisioning one on first sight.
package auth

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/in"
	"scheduler_server/core/port/out"
)

// Claims is the expected shape of a caller's signed bearer token. Sub
// identifies the external (account-scoped) user; Permissions lists the
// capabilities granted to this token.
type Claims struct {
	jwt.RegisteredClaims
	Permissions []string `json:"permissions"`
}

// Collaborator implements in.AuthCollaborator using Ed25519-signed bearer
// tokens, one public key per account.
type Collaborator struct {
	accounts out.AccountRepository
	users    out.UserRepository
	clock    out.Clock
}

func NewCollaborator(accounts out.AccountRepository, users out.UserRepository, clock out.Clock) *Collaborator {
	return &Collaborator{accounts: accounts, users: users, clock: clock}
}

func (c *Collaborator) Authenticate(ctx context.Context, accountID uuid.UUID, token string) (*domain.User, in.Policy, error) {
	account, err := c.accounts.Find(ctx, accountID)
	if err != nil {
		return nil, in.Policy{}, fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		return nil, in.Policy{}, fmt.Errorf("unknown account")
	}
	if len(account.PublicKey) != ed25519.PublicKeySize {
		return nil, in.Policy{}, fmt.Errorf("account has no valid public key configured")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		return ed25519.PublicKey(account.PublicKey), nil
	})
	if err != nil || !parsed.Valid {
		return nil, in.Policy{}, fmt.Errorf("invalid bearer token: %w", err)
	}
	if claims.Subject == "" {
		return nil, in.Policy{}, fmt.Errorf("token missing subject")
	}

	user, err := c.users.FindByExternalID(ctx, accountID, claims.Subject)
	if err != nil {
		return nil, in.Policy{}, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		user = &domain.User{
			ID:         uuid.New(),
			AccountID:  accountID,
			ExternalID: claims.Subject,
			CreatedAt:  time.UnixMilli(c.clock.NowMS()),
		}
		if err := c.users.Insert(ctx, user); err != nil {
			return nil, in.Policy{}, fmt.Errorf("provision user: %w", err)
		}
	}

	perms := make(in.PermissionSet, len(claims.Permissions))
	for _, p := range claims.Permissions {
		perms[in.Permission(p)] = struct{}{}
	}
	policy := in.Policy{Allow: perms}

	return user, policy, nil
}

var _ in.AuthCollaborator = (*Collaborator)(nil)
