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

type DoctorRepo struct {
	DB DBTX
}

const doctorColumns = principalColumns + `, phone_number, address, specialization`

const createDoctor = `-- name: CreateDoctor
INSERT INTO doctors (id, created_at, updated_at, email, name, role, password_hash, phone_number, address, specialization)
VALUES ($1, $2, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + doctorColumns

func (r *DoctorRepo) CreateDoctor(ctx context.Context, d models.Doctor) (models.Doctor, error) {
	rows, _ := r.DB.Query(ctx, createDoctor,
		uuid.New(), time.Now(), NormalizeEmail(d.Email), d.Name, models.RoleDoctor, d.PasswordHash,
		d.PhoneNumber, d.Address, d.Specialization,
	)
	doctor, err := pgx.CollectOneRow(rows, rowToDoctor)

	switch {
	case err == nil:
		return doctor, nil
	case isUniqueViolation(err):
		return doctor, apperrors.ErrPrincipalAlreadyExists
	default:
		return doctor, fmt.Errorf("db error: %w", err)
	}
}

const getDoctor = `-- name: GetDoctor
SELECT ` + doctorColumns + ` FROM doctors
WHERE id = $1
`

func (r *DoctorRepo) GetDoctor(ctx context.Context, id uuid.UUID) (models.Doctor, error) {
	rows, _ := r.DB.Query(ctx, getDoctor, id)
	doctor, err := pgx.CollectOneRow(rows, rowToDoctor)
	return doctor, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

const updateDoctor = `-- name: UpdateDoctor
UPDATE doctors SET
	name = COALESCE($2, name),
	phone_number = COALESCE($3, phone_number),
	address = COALESCE($4, address),
	specialization = COALESCE($5, specialization),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + doctorColumns

func (r *DoctorRepo) UpdateDoctor(ctx context.Context, id uuid.UUID, upd repository.DoctorUpdate) (models.Doctor, error) {
	rows, _ := r.DB.Query(ctx, updateDoctor, id, upd.Name, upd.PhoneNumber, upd.Address, upd.Specialization)
	doctor, err := pgx.CollectOneRow(rows, rowToDoctor)
	return doctor, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

const listDoctors = `-- name: ListDoctors
SELECT ` + doctorColumns + ` FROM doctors
WHERE $1::text = '' OR strpos(lower(specialization), lower($1)) > 0
ORDER BY created_at
`

func (r *DoctorRepo) ListDoctors(ctx context.Context, specialization string) ([]models.Doctor, error) {
	rows, _ := r.DB.Query(ctx, listDoctors, specialization)
	doctors, err := pgx.CollectRows(rows, rowToDoctor)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doctors, nil
}

func rowToDoctor(row pgx.CollectableRow) (models.Doctor, error) {
	d := models.Doctor{Principal: models.Principal{Kind: models.KindDoctor}}
	err := row.Scan(
		&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.Email, &d.Name, &d.Role, &d.PasswordHash, &d.RefreshToken,
		&d.PhoneNumber, &d.Address, &d.Specialization,
	)
	return d, err
}
