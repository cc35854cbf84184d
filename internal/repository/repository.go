package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/earlypulse/internal/models"
)

// Credential view over users, doctors or labs
// One store per principal kind
type PrincipalStore interface {
	// If not found must return apperrors.ErrPrincipalNotFound
	GetByEmail(ctx context.Context, email string) (models.Principal, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Principal, error)

	// Overwrite stored refresh token. Empty token clears it.
	// Must not fail when principal is missing: logout is idempotent
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error

	// Replace refresh token only if stored value equals expected (compare-and-swap)
	// If stored value differs must return apperrors.ErrRefreshTokenIsUsed
	RotateRefreshToken(ctx context.Context, id uuid.UUID, expected string, next string) error

	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error

	// If not found must return apperrors.ErrPrincipalNotFound
	Delete(ctx context.Context, id uuid.UUID) error
}

// Nil fields are left unchanged
type UserUpdate struct {
	Name                   *string
	PhoneNumber            *string
	Address                *string
	EmergencyContactNumber *string
}

type UserRepo interface {
	// If email is taken must return apperrors.ErrPrincipalAlreadyExists
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (models.User, error)
}

type DoctorUpdate struct {
	Name           *string
	PhoneNumber    *string
	Address        *string
	Specialization *string
}

type DoctorRepo interface {
	CreateDoctor(ctx context.Context, d models.Doctor) (models.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (models.Doctor, error)
	UpdateDoctor(ctx context.Context, id uuid.UUID, upd DoctorUpdate) (models.Doctor, error)

	// Empty specialization lists everybody
	ListDoctors(ctx context.Context, specialization string) ([]models.Doctor, error)
}

type LabUpdate struct {
	Name        *string
	PhoneNumber *string
	Address     *string
}

// Lab filters are combined with AND; zero value lists all labs
type LabFilter struct {
	Test      string
	BloodType models.BloodType // labs with stock > 0
	Location  string
}

type LabRepo interface {
	CreateLab(ctx context.Context, l models.Lab) (models.Lab, error)
	GetLab(ctx context.Context, id uuid.UUID) (models.Lab, error)
	UpdateLab(ctx context.Context, id uuid.UUID, upd LabUpdate) (models.Lab, error)
	ListLabs(ctx context.Context, f LabFilter) ([]models.Lab, error)

	// Set semantics: adding present test or removing absent one is not an error
	AddTest(ctx context.Context, id uuid.UUID, test string) (models.Lab, error)
	RemoveTest(ctx context.Context, id uuid.UUID, test string) (models.Lab, error)

	SetBloodStock(ctx context.Context, id uuid.UUID, bt models.BloodType, quantity int) (models.Lab, error)
}

type MedicineFilter struct {
	Category   string
	Search     string // name or description, case insensitive
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	ActiveOnly bool
}

type MedicineUpdate struct {
	Name          *string
	Description   *string
	Category      *string
	Manufacturer  *string
	Price         *decimal.Decimal
	StockQuantity *int
	ImageURL      *string
	DosageForm    *string
	Strength      *string
	IsActive      *bool
}

type MedicineRepo interface {
	CreateMedicine(ctx context.Context, m models.Medicine) (models.Medicine, error)

	// If not found must return apperrors.ErrMedicineNotFound
	GetMedicine(ctx context.Context, id uuid.UUID) (models.Medicine, error)

	// Same as GetMedicine but locks the row until transaction ends
	GetMedicineForUpdate(ctx context.Context, id uuid.UUID) (models.Medicine, error)

	ListMedicines(ctx context.Context, f MedicineFilter) ([]models.Medicine, error)
	UpdateMedicine(ctx context.Context, id uuid.UUID, upd MedicineUpdate) (models.Medicine, error)
	DeleteMedicine(ctx context.Context, id uuid.UUID) error

	// Fails with apperrors.ErrInsufficientStock when stock would go negative
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error

	CountMedicines(ctx context.Context) (total int, lowStock int, err error)
}

type OrderFilter struct {
	UserID        *uuid.UUID
	Status        string
	PaymentStatus string
}

type OrderRepo interface {
	CreateOrder(ctx context.Context, o models.Order) (models.Order, error)

	// If not found must return apperrors.ErrOrderNotFound
	GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error)

	// Newest first
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (models.Order, error)

	CountOrders(ctx context.Context) (total int, pending int, err error)
}

type Storage interface {
	// Credential store for the kind or nil if kind is unknown
	Principals(kind models.Kind) PrincipalStore

	User() UserRepo
	Doctor() DoctorRepo
	Lab() LabRepo
	Medicine() MedicineRepo
	Order() OrderRepo

	// Run fn in a transaction. Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
