package auth

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/in"
)

type fakeCollabClock struct{}

func (fakeCollabClock) NowMS() int64 { return time.Now().UnixMilli() }

type fakeAccountLookup struct {
	accounts map[uuid.UUID]domain.Account
}

func (f *fakeAccountLookup) Insert(ctx context.Context, account *domain.Account) error { return nil }
func (f *fakeAccountLookup) Find(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}
func (f *fakeAccountLookup) FindMany(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	return nil, nil
}
func (f *fakeAccountLookup) Update(ctx context.Context, account *domain.Account) error { return nil }
func (f *fakeAccountLookup) Delete(ctx context.Context, id uuid.UUID) error            { return nil }

type fakeUserLookup struct {
	byExternal map[string]*domain.User
	inserted   []*domain.User
}

func (f *fakeUserLookup) Insert(ctx context.Context, user *domain.User) error {
	f.inserted = append(f.inserted, user)
	if f.byExternal == nil {
		f.byExternal = map[string]*domain.User{}
	}
	f.byExternal[user.ExternalID] = user
	return nil
}
func (f *fakeUserLookup) Find(ctx context.Context, id uuid.UUID) (*domain.User, error) { return nil, nil }
func (f *fakeUserLookup) FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*domain.User, error) {
	return f.byExternal[externalID], nil
}
func (f *fakeUserLookup) Update(ctx context.Context, user *domain.User) error { return nil }
func (f *fakeUserLookup) Delete(ctx context.Context, id uuid.UUID) error     { return nil }

func signedToken(t *testing.T, priv ed25519.PrivateKey, subject string, perms []string) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Permissions:      perms,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestCollaboratorAuthenticateProvisionsUserOnFirstSight(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	accountID := uuid.New()
	accounts := &fakeAccountLookup{accounts: map[uuid.UUID]domain.Account{
		accountID: {ID: accountID, PublicKey: pub},
	}}
	users := &fakeUserLookup{}
	c := NewCollaborator(accounts, users, fakeCollabClock{})

	token := signedToken(t, priv, "external-user-1", []string{"events:write"})
	user, policy, err := c.Authenticate(context.Background(), accountID, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ExternalID != "external-user-1" {
		t.Errorf("ExternalID = %q, want external-user-1", user.ExternalID)
	}
	if len(users.inserted) != 1 {
		t.Fatalf("expected the unseen user to be auto-provisioned, got %d inserts", len(users.inserted))
	}
	if !policy.Authorizes([]in.Permission{"events:write"}) {
		t.Error("expected policy to authorize the permission carried by the token")
	}
	if policy.Authorizes([]in.Permission{"accounts:delete"}) {
		t.Error("policy must not authorize a permission absent from the token")
	}
}

func TestCollaboratorAuthenticateReusesExistingUser(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	accountID := uuid.New()
	accounts := &fakeAccountLookup{accounts: map[uuid.UUID]domain.Account{
		accountID: {ID: accountID, PublicKey: pub},
	}}
	existing := &domain.User{ID: uuid.New(), AccountID: accountID, ExternalID: "external-user-2"}
	users := &fakeUserLookup{byExternal: map[string]*domain.User{"external-user-2": existing}}
	c := NewCollaborator(accounts, users, fakeCollabClock{})

	token := signedToken(t, priv, "external-user-2", nil)
	user, _, err := c.Authenticate(context.Background(), accountID, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != existing.ID {
		t.Errorf("expected the already-provisioned user to be reused, got a different ID")
	}
	if len(users.inserted) != 0 {
		t.Errorf("must not re-provision a user that already exists, got %d inserts", len(users.inserted))
	}
}

func TestCollaboratorAuthenticateRejectsWrongSigningKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	_, otherPriv, err := ed25519.GenerateKey(nil) // different keypair signs the token
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	accountID := uuid.New()
	accounts := &fakeAccountLookup{accounts: map[uuid.UUID]domain.Account{
		accountID: {ID: accountID, PublicKey: pub},
	}}
	users := &fakeUserLookup{}
	c := NewCollaborator(accounts, users, fakeCollabClock{})

	token := signedToken(t, otherPriv, "external-user-3", nil)
	if _, _, err := c.Authenticate(context.Background(), accountID, token); err == nil {
		t.Fatal("expected authentication to fail for a token signed by a different key")
	}
}

func TestCollaboratorAuthenticateUnknownAccount(t *testing.T) {
	accounts := &fakeAccountLookup{accounts: map[uuid.UUID]domain.Account{}}
	users := &fakeUserLookup{}
	c := NewCollaborator(accounts, users, fakeCollabClock{})

	if _, _, err := c.Authenticate(context.Background(), uuid.New(), "irrelevant"); err == nil {
		t.Fatal("expected an error for an unknown account")
	}
}

func TestCollaboratorAuthenticateAccountWithoutPublicKey(t *testing.T) {
	accountID := uuid.New()
	accounts := &fakeAccountLookup{accounts: map[uuid.UUID]domain.Account{
		accountID: {ID: accountID}, // no PublicKey configured
	}}
	users := &fakeUserLookup{}
	c := NewCollaborator(accounts, users, fakeCollabClock{})

	if _, _, err := c.Authenticate(context.Background(), accountID, "irrelevant"); err == nil {
		t.Fatal("expected an error when the account has no valid public key")
	}
}
