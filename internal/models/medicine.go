package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Medicines with stock below this are reported as low stock
const LowStockThreshold = 10

type Medicine struct {
	ID            uuid.UUID       `json:"id"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Manufacturer  string          `json:"manufacturer"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	DosageForm    string          `json:"dosageForm"`
	Strength      string          `json:"strength,omitempty"`
	ExpiryDate    time.Time       `json:"expiryDate"`
	IsActive      bool            `json:"isActive"`
	CreatedBy     uuid.UUID       `json:"createdBy"`
}

type MedicineStats struct {
	TotalMedicines    int `json:"totalMedicines"`
	LowStockMedicines int `json:"lowStockMedicines"`
	TotalOrders       int `json:"totalOrders"`
	PendingOrders     int `json:"pendingOrders"`
}
