package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/earlypulse/internal/models"
)

func TestNewOrderCreated(t *testing.T) {
	orderID := uuid.MustParse("7f0c8a4e-3c1b-4f7e-9a55-1d2b3c4d5e6f")
	userID := uuid.MustParse("0b6a1f2e-8d7c-4b5a-9e3f-2a1b0c9d8e7f")
	medicineID := uuid.MustParse("c3d4e5f6-a7b8-4c9d-8e0f-1a2b3c4d5e6f")

	e := NewOrderCreated(models.Order{
		ID:          orderID,
		UserID:      userID,
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		TotalAmount: decimal.RequireFromString("7.5"),
		Items:       []models.OrderItem{{MedicineID: medicineID, Quantity: 3, Price: decimal.RequireFromString("2.5")}},
		Status:      models.OrderStatusPending,
	})

	body, err := json.Marshal(e)
	require.NoError(t, err)

	require.JSONEq(t, `{
		"orderId": "7f0c8a4e-3c1b-4f7e-9a55-1d2b3c4d5e6f",
		"userId": "0b6a1f2e-8d7c-4b5a-9e3f-2a1b0c9d8e7f",
		"totalAmount": "7.5",
		"items": [{"medicineId": "c3d4e5f6-a7b8-4c9d-8e0f-1a2b3c4d5e6f", "quantity": 3, "price": "2.5"}],
		"createdAt": "2025-03-01T12:00:00Z"
	}`, string(body))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}

	require.NoError(t, p.PublishOrderCreated(t.Context(), OrderCreated{}))
	require.NoError(t, p.Close())
}
