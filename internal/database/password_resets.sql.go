package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createPasswordReset = `
INSERT INTO password_resets (principal_type, principal_id, token_hash, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING id, principal_type, principal_id, token_hash, expires_at, used_at, created_at`

type CreatePasswordResetParams struct {
	PrincipalType string             `json:"principal_type"`
	PrincipalID   int64              `json:"principal_id"`
	TokenHash     string             `json:"token_hash"`
	ExpiresAt     pgtype.Timestamptz `json:"expires_at"`
}

func (q *Queries) CreatePasswordReset(ctx context.Context, arg CreatePasswordResetParams) (PasswordReset, error) {
	row := q.db.QueryRow(ctx, createPasswordReset, arg.PrincipalType, arg.PrincipalID, arg.TokenHash, arg.ExpiresAt)
	var i PasswordReset
	err := row.Scan(
		&i.ID,
		&i.PrincipalType,
		&i.PrincipalID,
		&i.TokenHash,
		&i.ExpiresAt,
		&i.UsedAt,
		&i.CreatedAt,
	)
	return i, err
}

const consumePasswordReset = `
UPDATE password_resets SET used_at = now()
WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
RETURNING id, principal_type, principal_id, token_hash, expires_at, used_at, created_at`

// ConsumePasswordReset marks an unused, unexpired reset token as used and
// returns it. Unknown, used or expired tokens yield pgx.ErrNoRows.
func (q *Queries) ConsumePasswordReset(ctx context.Context, tokenHash string) (PasswordReset, error) {
	row := q.db.QueryRow(ctx, consumePasswordReset, tokenHash)
	var i PasswordReset
	err := row.Scan(
		&i.ID,
		&i.PrincipalType,
		&i.PrincipalID,
		&i.TokenHash,
		&i.ExpiresAt,
		&i.UsedAt,
		&i.CreatedAt,
	)
	return i, err
}
