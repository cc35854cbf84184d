package medicine

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/events"
	"github.com/nkiryanov/earlypulse/internal/logger"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
)

var Categories = []string{"painkiller", "antibiotic", "vitamin", "supplement", "otc", "other"}

var DosageForms = []string{"tablet", "capsule", "liquid", "injection", "cream", "ointment", "drops", "other"}

var OrderStatuses = []string{
	models.OrderStatusPending,
	models.OrderStatusConfirmed,
	models.OrderStatusProcessing,
	models.OrderStatusShipped,
	models.OrderStatusDelivered,
	models.OrderStatusCancelled,
}

var PaymentStatuses = []string{
	models.PaymentStatusPending,
	models.PaymentStatusCompleted,
	models.PaymentStatusFailed,
	models.PaymentStatusRefunded,
}

type CreateParams struct {
	Name          string
	Description   string
	Category      string
	Manufacturer  string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      string
	DosageForm    string
	Strength      string
	ExpiryDate    time.Time
}

type OrderParams struct {
	Items           []models.OrderItem // only MedicineID and Quantity are used
	ShippingAddress models.ShippingAddress
	Notes           string
}

type MedicineService struct {
	storage   repository.Storage
	publisher events.Publisher
	logger    logger.Logger
}

func NewService(storage repository.Storage, publisher events.Publisher, l logger.Logger) *MedicineService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &MedicineService{storage: storage, publisher: publisher, logger: l}
}

// Public catalogue: inactive medicines are never listed
func (s *MedicineService) List(ctx context.Context, f repository.MedicineFilter) ([]models.Medicine, error) {
	f.ActiveOnly = true
	f.Category = strings.TrimSpace(f.Category)
	f.Search = strings.TrimSpace(f.Search)

	return s.storage.Medicine().ListMedicines(ctx, f)
}

func (s *MedicineService) Get(ctx context.Context, id uuid.UUID) (models.Medicine, error) {
	return s.storage.Medicine().GetMedicine(ctx, id)
}

// Prices are stored as NUMERIC(12, 2)
var maxPrice = decimal.New(1, 10)

func checkPrice(p decimal.Decimal) error {
	if !p.IsPositive() || !p.Equal(p.Round(2)) || p.GreaterThanOrEqual(maxPrice) {
		return apperrors.ErrPriceInvalid
	}
	return nil
}

func (s *MedicineService) Create(ctx context.Context, createdBy uuid.UUID, p CreateParams) (models.Medicine, error) {
	if err := checkPrice(p.Price); err != nil {
		return models.Medicine{}, err
	}

	return s.storage.Medicine().CreateMedicine(ctx, models.Medicine{
		Name:          strings.TrimSpace(p.Name),
		Description:   p.Description,
		Category:      p.Category,
		Manufacturer:  p.Manufacturer,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		ImageURL:      p.ImageURL,
		DosageForm:    p.DosageForm,
		Strength:      p.Strength,
		ExpiryDate:    p.ExpiryDate,
		IsActive:      true,
		CreatedBy:     createdBy,
	})
}

// Only the principal who created the medicine may change it
func (s *MedicineService) Update(ctx context.Context, by uuid.UUID, id uuid.UUID, upd repository.MedicineUpdate) (models.Medicine, error) {
	if upd.Price != nil {
		if err := checkPrice(*upd.Price); err != nil {
			return models.Medicine{}, err
		}
	}

	var updated models.Medicine

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		if err := checkCreator(ctx, tx, by, id); err != nil {
			return err
		}

		var err error
		updated, err = tx.Medicine().UpdateMedicine(ctx, id, upd)
		return err
	})

	return updated, err
}

func (s *MedicineService) Delete(ctx context.Context, by uuid.UUID, id uuid.UUID) error {
	return s.storage.InTx(ctx, func(tx repository.Storage) error {
		if err := checkCreator(ctx, tx, by, id); err != nil {
			return err
		}
		return tx.Medicine().DeleteMedicine(ctx, id)
	})
}

func checkCreator(ctx context.Context, tx repository.Storage, by uuid.UUID, id uuid.UUID) error {
	m, err := tx.Medicine().GetMedicineForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if m.CreatedBy != by {
		return apperrors.ErrForbidden
	}
	return nil
}

// Place order for user. Stock check, order insert and stock decrement happen in one transaction.
// Medicine rows are locked in id order, so concurrent orders over the same medicines can't deadlock.
func (s *MedicineService) PlaceOrder(ctx context.Context, userID uuid.UUID, p OrderParams) (models.Order, error) {
	items, err := mergeItems(p.Items)
	if err != nil {
		return models.Order{}, err
	}

	var order models.Order

	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		total := decimal.Zero

		for i, item := range items {
			m, err := tx.Medicine().GetMedicineForUpdate(ctx, item.MedicineID)
			if err != nil {
				return err
			}
			if !m.IsActive {
				return fmt.Errorf("%w: %s", apperrors.ErrMedicineUnavailable, m.Name)
			}
			if m.StockQuantity < item.Quantity {
				return fmt.Errorf("%w: %s", apperrors.ErrInsufficientStock, m.Name)
			}

			items[i].Price = m.Price
			total = total.Add(m.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		var err error
		order, err = tx.Order().CreateOrder(ctx, models.Order{
			UserID:          userID,
			Items:           items,
			TotalAmount:     total,
			ShippingAddress: p.ShippingAddress,
			Notes:           p.Notes,
		})
		if err != nil {
			return err
		}

		for _, item := range items {
			if err := tx.Medicine().DecrementStock(ctx, item.MedicineID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	if err := s.publisher.PublishOrderCreated(ctx, events.NewOrderCreated(order)); err != nil {
		s.logger.Error("failed to publish order event", "order", order.ID, "error", err)
	}

	return order, nil
}

// Items for the same medicine are summed; result is sorted by medicine id
func mergeItems(in []models.OrderItem) ([]models.OrderItem, error) {
	if len(in) == 0 {
		return nil, apperrors.ErrOrderEmpty
	}

	quantities := make(map[uuid.UUID]int, len(in))
	for _, item := range in {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be positive", apperrors.ErrOrderEmpty)
		}
		quantities[item.MedicineID] += item.Quantity
	}

	out := make([]models.OrderItem, 0, len(quantities))
	for id, q := range quantities {
		out = append(out, models.OrderItem{MedicineID: id, Quantity: q})
	}
	slices.SortFunc(out, func(a, b models.OrderItem) int {
		return bytes.Compare(a.MedicineID[:], b.MedicineID[:])
	})

	return out, nil
}

func (s *MedicineService) ListMyOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.storage.Order().ListOrders(ctx, repository.OrderFilter{UserID: &userID})
}

// Order is visible only to the user who placed it
func (s *MedicineService) GetOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (models.Order, error) {
	order, err := s.storage.Order().GetOrder(ctx, orderID)
	if err != nil {
		return order, err
	}
	if order.UserID != userID {
		return models.Order{}, apperrors.ErrForbidden
	}
	return order, nil
}

func (s *MedicineService) ListAllOrders(ctx context.Context, f repository.OrderFilter) ([]models.Order, error) {
	if f.Status != "" && !slices.Contains(OrderStatuses, f.Status) {
		return nil, apperrors.ErrOrderStatusInvalid
	}
	if f.PaymentStatus != "" && !slices.Contains(PaymentStatuses, f.PaymentStatus) {
		return nil, apperrors.ErrOrderStatusInvalid
	}
	return s.storage.Order().ListOrders(ctx, f)
}

func (s *MedicineService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (models.Order, error) {
	if !slices.Contains(OrderStatuses, status) {
		return models.Order{}, apperrors.ErrOrderStatusInvalid
	}
	return s.storage.Order().UpdateOrderStatus(ctx, orderID, status)
}

func (s *MedicineService) Stats(ctx context.Context) (models.MedicineStats, error) {
	var stats models.MedicineStats

	total, low, err := s.storage.Medicine().CountMedicines(ctx)
	if err != nil {
		return stats, err
	}
	orders, pending, err := s.storage.Order().CountOrders(ctx)
	if err != nil {
		return stats, err
	}

	return models.MedicineStats{
		TotalMedicines:    total,
		LowStockMedicines: low,
		TotalOrders:       orders,
		PendingOrders:     pending,
	}, nil
}

