package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
)

var principalTables = map[models.Kind]string{
	models.KindUser:   "users",
	models.KindDoctor: "doctors",
	models.KindLab:    "labs",
}

// Credential columns shared by users, doctors and labs tables
const principalColumns = `id, created_at, updated_at, email, name, role, password_hash, COALESCE(refresh_token, '')`

// PrincipalRepo works with credential columns of one table.
// Table name comes from principalTables only, never from input.
type PrincipalRepo struct {
	DB    DBTX
	kind  models.Kind
	table string
}

func (r *PrincipalRepo) query(tmpl string) string {
	return fmt.Sprintf(tmpl, r.table)
}

const getPrincipalByEmail = `-- name: GetPrincipalByEmail
SELECT ` + principalColumns + ` FROM %s
WHERE email = $1
`

func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (models.Principal, error) {
	rows, _ := r.DB.Query(ctx, r.query(getPrincipalByEmail), NormalizeEmail(email))
	p, err := pgx.CollectOneRow(rows, r.rowToPrincipal)
	return p, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

const getPrincipalByID = `-- name: GetPrincipalByID
SELECT ` + principalColumns + ` FROM %s
WHERE id = $1
`

func (r *PrincipalRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Principal, error) {
	rows, _ := r.DB.Query(ctx, r.query(getPrincipalByID), id)
	p, err := pgx.CollectOneRow(rows, r.rowToPrincipal)
	return p, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE %s
SET refresh_token = NULLIF($2, '')
WHERE id = $1
`

func (r *PrincipalRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	_, err := r.DB.Exec(ctx, r.query(setRefreshToken), id, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const rotateRefreshToken = `-- name: RotateRefreshToken
UPDATE %s
SET refresh_token = $3
WHERE id = $1 AND refresh_token = $2
`

func (r *PrincipalRepo) RotateRefreshToken(ctx context.Context, id uuid.UUID, expected string, next string) error {
	if expected == "" {
		return apperrors.ErrRefreshTokenIsUsed
	}

	tag, err := r.DB.Exec(ctx, r.query(rotateRefreshToken), id, expected, next)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrRefreshTokenIsUsed
	default:
		return nil
	}
}

const setPasswordHash = `-- name: SetPasswordHash
UPDATE %s
SET password_hash = $2, updated_at = NOW()
WHERE id = $1
`

func (r *PrincipalRepo) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.DB.Exec(ctx, r.query(setPasswordHash), id, hash)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrPrincipalNotFound
	default:
		return nil
	}
}

const deletePrincipal = `-- name: DeletePrincipal
DELETE FROM %s
WHERE id = $1
`

func (r *PrincipalRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, r.query(deletePrincipal), id)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrPrincipalNotFound
	default:
		return nil
	}
}

func (r *PrincipalRepo) rowToPrincipal(row pgx.CollectableRow) (models.Principal, error) {
	p := models.Principal{Kind: r.kind}
	err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Email, &p.Name, &p.Role, &p.PasswordHash, &p.RefreshToken)
	return p, err
}

// Emails are stored trimmed and lower cased
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
