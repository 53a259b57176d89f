package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"scheduler_server/core/port/out"

	"github.com/jmoiron/sqlx"
)

// OAuthTokenRepository implements out.OAuthTokenStore against a table keyed
// by (provider, user_id).
type OAuthTokenRepository struct {
	db *sqlx.DB
}

func NewOAuthTokenRepository(db *sqlx.DB) out.OAuthTokenStore {
	return &OAuthTokenRepository{db: db}
}

type oauthTokenRow struct {
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	Expiry       time.Time `db:"expiry"`
}

func (r *OAuthTokenRepository) Get(ctx context.Context, provider, userID string) (*out.OAuthToken, error) {
	var row oauthTokenRow
	err := r.db.GetContext(ctx, &row, `
		SELECT access_token, refresh_token, expiry
		FROM oauth_tokens WHERE provider = $1 AND user_id = $2`, provider, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find oauth token: %w", err)
	}
	return &out.OAuthToken{AccessToken: row.AccessToken, RefreshToken: row.RefreshToken, Expiry: row.Expiry}, nil
}

func (r *OAuthTokenRepository) Save(ctx context.Context, provider, userID string, token out.OAuthToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO oauth_tokens (provider, user_id, access_token, refresh_token, expiry)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, user_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expiry = EXCLUDED.expiry`,
		provider, userID, token.AccessToken, token.RefreshToken, token.Expiry)
	if err != nil {
		return fmt.Errorf("save oauth token: %w", err)
	}
	return nil
}
