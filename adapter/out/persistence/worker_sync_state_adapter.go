package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scheduler_server/core/domain"
	"scheduler_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserRepository implements out.UserRepository.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) out.UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID         uuid.UUID `db:"id"`
	AccountID  uuid.UUID `db:"account_id"`
	ExternalID string    `db:"external_id"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{ID: r.ID, AccountID: r.AccountID, ExternalID: r.ExternalID, CreatedAt: r.CreatedAt}
}

func (r *UserRepository) Insert(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, account_id, external_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		user.ID, user.AccountID, user.ExternalID, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Find(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT id, account_id, external_id, created_at FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*domain.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, account_id, external_id, created_at
		FROM users WHERE account_id = $1 AND external_id = $2`, accountID, externalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by external id: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET external_id = $2 WHERE id = $1`, user.ID, user.ExternalID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// AccountRepository implements out.AccountRepository.
type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) out.AccountRepository {
	return &AccountRepository{db: db}
}

type accountRow struct {
	ID                uuid.UUID `db:"id"`
	PublicKey         []byte    `db:"public_key"`
	WebhookURL        string    `db:"webhook_url"`
	WebhookSigningKey string    `db:"webhook_signing_key"`
	CreatedAt         time.Time `db:"created_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID: r.ID, PublicKey: r.PublicKey,
		WebhookURL: r.WebhookURL, WebhookSigningKey: r.WebhookSigningKey,
		CreatedAt: r.CreatedAt,
	}
}

func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, public_key, webhook_url, webhook_signing_key, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.PublicKey, account.WebhookURL, account.WebhookSigningKey, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) Find(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var row accountRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, public_key, webhook_url, webhook_signing_key, created_at FROM accounts WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	acc := row.toDomain()
	return &acc, nil
}

func (r *AccountRepository) FindMany(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, public_key, webhook_url, webhook_signing_key, created_at
		FROM accounts WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build find many accounts query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []accountRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find many accounts: %w", err)
	}
	result := make([]domain.Account, len(rows))
	for i, row := range rows {
		result[i] = row.toDomain()
	}
	return result, nil
}

func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET public_key = $2, webhook_url = $3, webhook_signing_key = $4
		WHERE id = $1`,
		account.ID, account.PublicKey, account.WebhookURL, account.WebhookSigningKey)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
