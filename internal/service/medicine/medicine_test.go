package medicine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/events"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/repository/postgres"
	"github.com/nkiryanov/earlypulse/internal/testutil"
)

type recordingPublisher struct {
	published []events.OrderCreated
	err       error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, e events.OrderCreated) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestMedicine(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	type env struct {
		s         *MedicineService
		storage   repository.Storage
		publisher *recordingPublisher
		owner     models.User
		patient   models.User
	}

	inTx := func(t *testing.T, fn func(e env)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			publisher := &recordingPublisher{}

			owner, err := storage.User().CreateUser(t.Context(), models.User{
				Principal: models.Principal{Email: "owner@example.com", Name: "Owner", Role: models.RoleMedicalOwner, PasswordHash: "x"},
			})
			require.NoError(t, err, "creating owner should not fail")
			patient, err := storage.User().CreateUser(t.Context(), models.User{
				Principal: models.Principal{Email: "patient@example.com", Name: "Patient", PasswordHash: "x"},
			})
			require.NoError(t, err, "creating patient should not fail")

			fn(env{
				s:         NewService(storage, publisher, nil),
				storage:   storage,
				publisher: publisher,
				owner:     owner,
				patient:   patient,
			})
		})
	}

	create := func(t *testing.T, e env, name string, price string, stock int) models.Medicine {
		m, err := e.s.Create(t.Context(), e.owner.ID, CreateParams{
			Name:          name,
			Category:      "painkiller",
			Manufacturer:  "Acme",
			Price:         decimal.RequireFromString(price),
			StockQuantity: stock,
			DosageForm:    "tablet",
			ExpiryDate:    time.Now().AddDate(1, 0, 0),
		})
		require.NoError(t, err, "creating medicine should not fail")
		return m
	}

	t.Run("Catalogue", func(t *testing.T) {
		t.Run("list hides inactive", func(t *testing.T) {
			inTx(t, func(e env) {
				create(t, e, "Paracetamol", "2.50", 100)
				hidden := create(t, e, "Ibuprofen", "3.10", 100)

				inactive := false
				_, err := e.s.Update(t.Context(), e.owner.ID, hidden.ID, repository.MedicineUpdate{IsActive: &inactive})
				require.NoError(t, err)

				list, err := e.s.List(t.Context(), repository.MedicineFilter{})
				require.NoError(t, err)
				require.Len(t, list, 1)
				assert.Equal(t, "Paracetamol", list[0].Name)
			})
		})

		t.Run("list filters", func(t *testing.T) {
			inTx(t, func(e env) {
				create(t, e, "Paracetamol", "2.50", 100)
				create(t, e, "Aspirin", "9.00", 100)

				minPrice := decimal.RequireFromString("5")
				list, err := e.s.List(t.Context(), repository.MedicineFilter{MinPrice: &minPrice})
				require.NoError(t, err)
				require.Len(t, list, 1)
				assert.Equal(t, "Aspirin", list[0].Name)

				list, err = e.s.List(t.Context(), repository.MedicineFilter{Search: " PARA "})
				require.NoError(t, err)
				require.Len(t, list, 1)
				assert.Equal(t, "Paracetamol", list[0].Name)

				list, err = e.s.List(t.Context(), repository.MedicineFilter{Search: "%"})
				require.NoError(t, err)
				assert.Empty(t, list, "search text is matched literally")
			})
		})

		t.Run("price must fit the column", func(t *testing.T) {
			inTx(t, func(e env) {
				m := create(t, e, "Paracetamol", "2.50", 100)

				for _, price := range []string{"0", "-1", "0.001", "2.505", "10000000000"} {
					_, err := e.s.Create(t.Context(), e.owner.ID, CreateParams{
						Name:       "Odd",
						Category:   "painkiller",
						Price:      decimal.RequireFromString(price),
						DosageForm: "tablet",
						ExpiryDate: time.Now().AddDate(1, 0, 0),
					})
					require.ErrorIsf(t, err, apperrors.ErrPriceInvalid, "create with price %s", price)

					p := decimal.RequireFromString(price)
					_, err = e.s.Update(t.Context(), e.owner.ID, m.ID, repository.MedicineUpdate{Price: &p})
					require.ErrorIsf(t, err, apperrors.ErrPriceInvalid, "update with price %s", price)
				}

				p := decimal.RequireFromString("9999999999.99")
				updated, err := e.s.Update(t.Context(), e.owner.ID, m.ID, repository.MedicineUpdate{Price: &p})
				require.NoError(t, err)
				assert.True(t, p.Equal(updated.Price))
			})
		})

		t.Run("only creator may update or delete", func(t *testing.T) {
			inTx(t, func(e env) {
				m := create(t, e, "Paracetamol", "2.50", 100)

				name := "Renamed"
				_, err := e.s.Update(t.Context(), e.patient.ID, m.ID, repository.MedicineUpdate{Name: &name})
				require.ErrorIs(t, err, apperrors.ErrForbidden)

				err = e.s.Delete(t.Context(), e.patient.ID, m.ID)
				require.ErrorIs(t, err, apperrors.ErrForbidden)

				err = e.s.Delete(t.Context(), e.owner.ID, m.ID)
				require.NoError(t, err)

				_, err = e.s.Get(t.Context(), m.ID)
				require.ErrorIs(t, err, apperrors.ErrMedicineNotFound)
			})
		})
	})

	t.Run("PlaceOrder", func(t *testing.T) {
		t.Run("order ok", func(t *testing.T) {
			inTx(t, func(e env) {
				para := create(t, e, "Paracetamol", "2.50", 10)
				vitC := create(t, e, "Vitamin C", "1.25", 5)

				order, err := e.s.PlaceOrder(t.Context(), e.patient.ID, OrderParams{
					Items: []models.OrderItem{
						{MedicineID: para.ID, Quantity: 2},
						{MedicineID: vitC.ID, Quantity: 4},
						{MedicineID: para.ID, Quantity: 1},
					},
					ShippingAddress: models.ShippingAddress{City: "Pune"},
				})

				require.NoError(t, err, "placing order should not fail")
				require.Len(t, order.Items, 2, "same medicine items should be merged")
				assert.True(t, decimal.RequireFromString("12.50").Equal(order.TotalAmount), "total is 3*2.50 + 4*1.25, got %s", order.TotalAmount)
				assert.Equal(t, models.OrderStatusPending, order.Status)
				assert.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)

				got, err := e.s.Get(t.Context(), para.ID)
				require.NoError(t, err)
				assert.Equal(t, 7, got.StockQuantity, "stock should be decremented")

				require.Len(t, e.publisher.published, 1, "order event should be published")
				assert.Equal(t, order.ID, e.publisher.published[0].OrderID)
			})
		})

		t.Run("insufficient stock rolls back", func(t *testing.T) {
			inTx(t, func(e env) {
				para := create(t, e, "Paracetamol", "2.50", 10)
				vitC := create(t, e, "Vitamin C", "1.25", 1)

				_, err := e.s.PlaceOrder(t.Context(), e.patient.ID, OrderParams{
					Items: []models.OrderItem{
						{MedicineID: para.ID, Quantity: 2},
						{MedicineID: vitC.ID, Quantity: 2},
					},
				})

				require.ErrorIs(t, err, apperrors.ErrInsufficientStock)

				got, err := e.s.Get(t.Context(), para.ID)
				require.NoError(t, err)
				assert.Equal(t, 10, got.StockQuantity, "stock should stay untouched")

				orders, err := e.s.ListMyOrders(t.Context(), e.patient.ID)
				require.NoError(t, err)
				assert.Empty(t, orders, "no order should be stored")
				assert.Empty(t, e.publisher.published)
			})
		})

		t.Run("inactive medicine", func(t *testing.T) {
			inTx(t, func(e env) {
				m := create(t, e, "Paracetamol", "2.50", 10)
				inactive := false
				_, err := e.s.Update(t.Context(), e.owner.ID, m.ID, repository.MedicineUpdate{IsActive: &inactive})
				require.NoError(t, err)

				_, err = e.s.PlaceOrder(t.Context(), e.patient.ID, OrderParams{
					Items: []models.OrderItem{{MedicineID: m.ID, Quantity: 1}},
				})

				require.ErrorIs(t, err, apperrors.ErrMedicineUnavailable)
			})
		})

		t.Run("unknown medicine", func(t *testing.T) {
			inTx(t, func(e env) {
				_, err := e.s.PlaceOrder(t.Context(), e.patient.ID, OrderParams{
					Items: []models.OrderItem{{MedicineID: uuid.New(), Quantity: 1}},
				})

				require.ErrorIs(t, err, apperrors.ErrMedicineNotFound)
			})
		})

		t.Run("empty or non positive items", func(t *testing.T) {
			inTx(t, func(e env) {
				_, err := e.s.PlaceOrder(t.Context(), e.patient.ID, OrderParams{})
				require.ErrorIs(t, err, apperrors.ErrOrderEmpty)

				_, err = e.s.PlaceOrder(t.Context(), e.patient.ID, OrderParams{
					Items: []models.OrderItem{{MedicineID: uuid.New(), Quantity: 0}},
				})
				require.ErrorIs(t, err, apperrors.ErrOrderEmpty)
			})
		})

		t.Run("publish failure does not fail order", func(t *testing.T) {
			inTx(t, func(e env) {
				m := create(t, e, "Paracetamol", "2.50", 10)
				e.publisher.err = errors.New("broker is down")

				order, err := e.s.PlaceOrder(t.Context(), e.patient.ID, OrderParams{
					Items: []models.OrderItem{{MedicineID: m.ID, Quantity: 1}},
				})

				require.NoError(t, err)
				require.NotEqual(t, uuid.Nil, order.ID)
			})
		})
	})

	t.Run("Orders", func(t *testing.T) {
		t.Run("get own only", func(t *testing.T) {
			inTx(t, func(e env) {
				m := create(t, e, "Paracetamol", "2.50", 10)
				order, err := e.s.PlaceOrder(t.Context(), e.patient.ID, OrderParams{
					Items: []models.OrderItem{{MedicineID: m.ID, Quantity: 1}},
				})
				require.NoError(t, err)

				got, err := e.s.GetOrder(t.Context(), e.patient.ID, order.ID)
				require.NoError(t, err)
				assert.Equal(t, order.ID, got.ID)

				_, err = e.s.GetOrder(t.Context(), e.owner.ID, order.ID)
				require.ErrorIs(t, err, apperrors.ErrForbidden)

				_, err = e.s.GetOrder(t.Context(), e.patient.ID, uuid.New())
				require.ErrorIs(t, err, apperrors.ErrOrderNotFound)
			})
		})

		t.Run("status and stats", func(t *testing.T) {
			inTx(t, func(e env) {
				m := create(t, e, "Paracetamol", "2.50", 12)
				create(t, e, "Rare", "100", 3)
				order, err := e.s.PlaceOrder(t.Context(), e.patient.ID, OrderParams{
					Items: []models.OrderItem{{MedicineID: m.ID, Quantity: 1}},
				})
				require.NoError(t, err)

				stats, err := e.s.Stats(t.Context())
				require.NoError(t, err)
				assert.Equal(t, models.MedicineStats{TotalMedicines: 2, LowStockMedicines: 1, TotalOrders: 1, PendingOrders: 1}, stats)

				_, err = e.s.UpdateOrderStatus(t.Context(), order.ID, "lost")
				require.ErrorIs(t, err, apperrors.ErrOrderStatusInvalid)

				updated, err := e.s.UpdateOrderStatus(t.Context(), order.ID, models.OrderStatusShipped)
				require.NoError(t, err)
				assert.Equal(t, models.OrderStatusShipped, updated.Status)

				all, err := e.s.ListAllOrders(t.Context(), repository.OrderFilter{Status: models.OrderStatusShipped})
				require.NoError(t, err)
				require.Len(t, all, 1)

				_, err = e.s.ListAllOrders(t.Context(), repository.OrderFilter{PaymentStatus: "stolen"})
				require.ErrorIs(t, err, apperrors.ErrOrderStatusInvalid)
			})
		})
	})
}
