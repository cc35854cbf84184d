package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = principalColumns + `, phone_number, address, emergency_contact_number`

const createUser = `-- name: CreateUser
INSERT INTO users (id, created_at, updated_at, email, name, role, password_hash, phone_number, address, emergency_contact_number)
VALUES ($1, $2, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if u.Role == "" {
		u.Role = models.RoleUser
	}

	rows, _ := r.DB.Query(ctx, createUser,
		uuid.New(), time.Now(), NormalizeEmail(u.Email), u.Name, u.Role, u.PasswordHash,
		u.PhoneNumber, u.Address, u.EmergencyContactNumber,
	)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case isUniqueViolation(err):
		return user, apperrors.ErrPrincipalAlreadyExists
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUser = `-- name: GetUser
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUser, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)
	return user, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

const updateUser = `-- name: UpdateUser
UPDATE users SET
	name = COALESCE($2, name),
	phone_number = COALESCE($3, phone_number),
	address = COALESCE($4, address),
	emergency_contact_number = COALESCE($5, emergency_contact_number),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateUser(ctx context.Context, id uuid.UUID, upd repository.UserUpdate) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateUser, id, upd.Name, upd.PhoneNumber, upd.Address, upd.EmergencyContactNumber)
	user, err := pgx.CollectOneRow(rows, rowToUser)
	return user, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	u := models.User{Principal: models.Principal{Kind: models.KindUser}}
	err := row.Scan(
		&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.RefreshToken,
		&u.PhoneNumber, &u.Address, &u.EmergencyContactNumber,
	)
	return u, err
}
