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

type LabRepo struct {
	DB DBTX
}

const labColumns = principalColumns + `, phone_number, address, tests_offered, blood_inventory`

const createLab = `-- name: CreateLab
INSERT INTO labs (id, created_at, updated_at, email, name, role, password_hash, phone_number, address, tests_offered, blood_inventory)
VALUES ($1, $2, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + labColumns

func (r *LabRepo) CreateLab(ctx context.Context, l models.Lab) (models.Lab, error) {
	tests := l.TestsOffered
	if tests == nil {
		tests = []string{}
	}

	rows, _ := r.DB.Query(ctx, createLab,
		uuid.New(), time.Now(), NormalizeEmail(l.Email), l.Name, models.RoleLab, l.PasswordHash,
		l.PhoneNumber, l.Address, tests, l.BloodInventory.Complete(),
	)
	lab, err := pgx.CollectOneRow(rows, rowToLab)

	switch {
	case err == nil:
		return lab, nil
	case isUniqueViolation(err):
		return lab, apperrors.ErrPrincipalAlreadyExists
	default:
		return lab, fmt.Errorf("db error: %w", err)
	}
}

const getLab = `-- name: GetLab
SELECT ` + labColumns + ` FROM labs
WHERE id = $1
`

func (r *LabRepo) GetLab(ctx context.Context, id uuid.UUID) (models.Lab, error) {
	rows, _ := r.DB.Query(ctx, getLab, id)
	lab, err := pgx.CollectOneRow(rows, rowToLab)
	return lab, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

const updateLab = `-- name: UpdateLab
UPDATE labs SET
	name = COALESCE($2, name),
	phone_number = COALESCE($3, phone_number),
	address = COALESCE($4, address),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + labColumns

func (r *LabRepo) UpdateLab(ctx context.Context, id uuid.UUID, upd repository.LabUpdate) (models.Lab, error) {
	rows, _ := r.DB.Query(ctx, updateLab, id, upd.Name, upd.PhoneNumber, upd.Address)
	lab, err := pgx.CollectOneRow(rows, rowToLab)
	return lab, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

const listLabs = `-- name: ListLabs
SELECT ` + labColumns + ` FROM labs
WHERE ($1::text = '' OR EXISTS (SELECT 1 FROM unnest(tests_offered) AS t WHERE strpos(lower(t), lower($1)) > 0))
	AND ($2::text = '' OR COALESCE((blood_inventory ->> $2::text)::int, 0) > 0)
	AND ($3::text = '' OR strpos(lower(address), lower($3)) > 0)
ORDER BY created_at
`

func (r *LabRepo) ListLabs(ctx context.Context, f repository.LabFilter) ([]models.Lab, error) {
	rows, _ := r.DB.Query(ctx, listLabs, f.Test, string(f.BloodType), f.Location)
	labs, err := pgx.CollectRows(rows, rowToLab)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return labs, nil
}

const addLabTest = `-- name: AddLabTest
UPDATE labs SET
	tests_offered = CASE
		WHEN $2::text = ANY(tests_offered) THEN tests_offered
		ELSE array_append(tests_offered, $2::text)
	END,
	updated_at = NOW()
WHERE id = $1
RETURNING ` + labColumns

func (r *LabRepo) AddTest(ctx context.Context, id uuid.UUID, test string) (models.Lab, error) {
	rows, _ := r.DB.Query(ctx, addLabTest, id, test)
	lab, err := pgx.CollectOneRow(rows, rowToLab)
	return lab, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

const removeLabTest = `-- name: RemoveLabTest
UPDATE labs SET
	tests_offered = array_remove(tests_offered, $2::text),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + labColumns

func (r *LabRepo) RemoveTest(ctx context.Context, id uuid.UUID, test string) (models.Lab, error) {
	rows, _ := r.DB.Query(ctx, removeLabTest, id, test)
	lab, err := pgx.CollectOneRow(rows, rowToLab)
	return lab, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

const setBloodStock = `-- name: SetBloodStock
UPDATE labs SET
	blood_inventory = jsonb_set(blood_inventory, ARRAY[$2::text], to_jsonb(GREATEST($3::int, 0))),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + labColumns

// Negative quantity is stored as zero
func (r *LabRepo) SetBloodStock(ctx context.Context, id uuid.UUID, bt models.BloodType, quantity int) (models.Lab, error) {
	if !bt.Valid() {
		return models.Lab{}, apperrors.ErrInvalidBloodType
	}

	rows, _ := r.DB.Query(ctx, setBloodStock, id, string(bt), quantity)
	lab, err := pgx.CollectOneRow(rows, rowToLab)
	return lab, notFoundOr(err, apperrors.ErrPrincipalNotFound)
}

func rowToLab(row pgx.CollectableRow) (models.Lab, error) {
	l := models.Lab{Principal: models.Principal{Kind: models.KindLab}}
	err := row.Scan(
		&l.ID, &l.CreatedAt, &l.UpdatedAt, &l.Email, &l.Name, &l.Role, &l.PasswordHash, &l.RefreshToken,
		&l.PhoneNumber, &l.Address, &l.TestsOffered, &l.BloodInventory,
	)
	l.BloodInventory = l.BloodInventory.Complete()
	return l, err
}
