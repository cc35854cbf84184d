package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/earlypulse/internal/models"
)

const QueueOrderCreated = "order.created"

type OrderCreatedItem struct {
	MedicineID uuid.UUID       `json:"medicineId"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type OrderCreated struct {
	OrderID     uuid.UUID          `json:"orderId"`
	UserID      uuid.UUID          `json:"userId"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Items       []OrderCreatedItem `json:"items"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func NewOrderCreated(o models.Order) OrderCreated {
	items := make([]OrderCreatedItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderCreatedItem{MedicineID: it.MedicineID, Quantity: it.Quantity, Price: it.Price})
	}
	return OrderCreated{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Items:       items,
		CreatedAt:   o.CreatedAt,
	}
}

// Publisher of domain events
// Delivery is best effort: callers log failures and go on
type Publisher interface {
	PublishOrderCreated(ctx context.Context, e OrderCreated) error
	Close() error
}

// Used when no broker configured
type NopPublisher struct{}

func (NopPublisher) PublishOrderCreated(context.Context, OrderCreated) error { return nil }
func (NopPublisher) Close() error                                          { return nil }
