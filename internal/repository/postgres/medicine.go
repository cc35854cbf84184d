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

type MedicineRepo struct {
	DB DBTX
}

const medicineColumns = `id, created_at, updated_at, name, description, category, manufacturer, price,
	stock_quantity, image_url, dosage_form, strength, expiry_date, is_active, created_by`

const createMedicine = `-- name: CreateMedicine
INSERT INTO medicines (id, created_at, updated_at, name, description, category, manufacturer, price,
	stock_quantity, image_url, dosage_form, strength, expiry_date, is_active, created_by)
VALUES ($1, $2, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + medicineColumns

func (r *MedicineRepo) CreateMedicine(ctx context.Context, m models.Medicine) (models.Medicine, error) {
	rows, _ := r.DB.Query(ctx, createMedicine,
		uuid.New(), time.Now(), m.Name, m.Description, m.Category, m.Manufacturer, m.Price,
		m.StockQuantity, m.ImageURL, m.DosageForm, m.Strength, m.ExpiryDate, m.IsActive, m.CreatedBy,
	)
	medicine, err := pgx.CollectOneRow(rows, rowToMedicine)
	if err != nil {
		return medicine, fmt.Errorf("db error: %w", err)
	}
	return medicine, nil
}

const getMedicine = `-- name: GetMedicine
SELECT ` + medicineColumns + ` FROM medicines
WHERE id = $1
`

func (r *MedicineRepo) GetMedicine(ctx context.Context, id uuid.UUID) (models.Medicine, error) {
	rows, _ := r.DB.Query(ctx, getMedicine, id)
	medicine, err := pgx.CollectOneRow(rows, rowToMedicine)
	return medicine, notFoundOr(err, apperrors.ErrMedicineNotFound)
}

const getMedicineForUpdate = getMedicine + `FOR UPDATE`

func (r *MedicineRepo) GetMedicineForUpdate(ctx context.Context, id uuid.UUID) (models.Medicine, error) {
	rows, _ := r.DB.Query(ctx, getMedicineForUpdate, id)
	medicine, err := pgx.CollectOneRow(rows, rowToMedicine)
	return medicine, notFoundOr(err, apperrors.ErrMedicineNotFound)
}

const listMedicines = `-- name: ListMedicines
SELECT ` + medicineColumns + ` FROM medicines
WHERE ($1::text = '' OR category = $1)
	AND ($2::text = '' OR strpos(lower(name), lower($2)) > 0 OR strpos(lower(description), lower($2)) > 0)
	AND ($3::numeric IS NULL OR price >= $3)
	AND ($4::numeric IS NULL OR price <= $4)
	AND (NOT $5::bool OR is_active)
ORDER BY created_at DESC
`

func (r *MedicineRepo) ListMedicines(ctx context.Context, f repository.MedicineFilter) ([]models.Medicine, error) {
	rows, _ := r.DB.Query(ctx, listMedicines, f.Category, f.Search, f.MinPrice, f.MaxPrice, f.ActiveOnly)
	medicines, err := pgx.CollectRows(rows, rowToMedicine)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return medicines, nil
}

const updateMedicine = `-- name: UpdateMedicine
UPDATE medicines SET
	name = COALESCE($2, name),
	description = COALESCE($3, description),
	category = COALESCE($4, category),
	manufacturer = COALESCE($5, manufacturer),
	price = COALESCE($6, price),
	stock_quantity = COALESCE($7, stock_quantity),
	image_url = COALESCE($8, image_url),
	dosage_form = COALESCE($9, dosage_form),
	strength = COALESCE($10, strength),
	is_active = COALESCE($11, is_active),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + medicineColumns

func (r *MedicineRepo) UpdateMedicine(ctx context.Context, id uuid.UUID, upd repository.MedicineUpdate) (models.Medicine, error) {
	rows, _ := r.DB.Query(ctx, updateMedicine, id,
		upd.Name, upd.Description, upd.Category, upd.Manufacturer, upd.Price,
		upd.StockQuantity, upd.ImageURL, upd.DosageForm, upd.Strength, upd.IsActive,
	)
	medicine, err := pgx.CollectOneRow(rows, rowToMedicine)
	return medicine, notFoundOr(err, apperrors.ErrMedicineNotFound)
}

const deleteMedicine = `-- name: DeleteMedicine
DELETE FROM medicines
WHERE id = $1
`

func (r *MedicineRepo) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteMedicine, id)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrMedicineNotFound
	default:
		return nil
	}
}

const decrementStock = `-- name: DecrementStock
UPDATE medicines SET
	stock_quantity = stock_quantity - $2,
	updated_at = NOW()
WHERE id = $1 AND stock_quantity >= $2
`

func (r *MedicineRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	tag, err := r.DB.Exec(ctx, decrementStock, id, quantity)
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrInsufficientStock
	default:
		return nil
	}
}

const countMedicines = `-- name: CountMedicines
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE stock_quantity < $1)
FROM medicines
WHERE is_active
`

func (r *MedicineRepo) CountMedicines(ctx context.Context) (int, int, error) {
	var total, low int
	err := r.DB.QueryRow(ctx, countMedicines, models.LowStockThreshold).Scan(&total, &low)
	if err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return total, low, nil
}

func rowToMedicine(row pgx.CollectableRow) (models.Medicine, error) {
	var m models.Medicine
	err := row.Scan(
		&m.ID, &m.CreatedAt, &m.UpdatedAt, &m.Name, &m.Description, &m.Category, &m.Manufacturer, &m.Price,
		&m.StockQuantity, &m.ImageURL, &m.DosageForm, &m.Strength, &m.ExpiryDate, &m.IsActive, &m.CreatedBy,
	)
	return m, err
}
