package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/earlypulse/internal/handlers/principalctx"
	"github.com/nkiryanov/earlypulse/internal/handlers/render"
	"github.com/nkiryanov/earlypulse/internal/logger"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/service/medicine"
)

// Writes 400 and returns false if path value is not uuid
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		render.ServiceError(w, "Invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// Parses optional decimal query parameter. Writes 400 and returns false if it is malformed
func queryDecimal(w http.ResponseWriter, r *http.Request, name string) (*decimal.Decimal, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		render.ServiceError(w, "Invalid "+name, http.StatusBadRequest)
		return nil, false
	}
	return &d, true
}

func handleListMedicines(ms medicineService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		minPrice, ok := queryDecimal(w, r, "minPrice")
		if !ok {
			return
		}
		maxPrice, ok := queryDecimal(w, r, "maxPrice")
		if !ok {
			return
		}

		medicines, err := ms.List(r.Context(), repository.MedicineFilter{
			Category: r.URL.Query().Get("category"),
			Search:   r.URL.Query().Get("search"),
			MinPrice: minPrice,
			MaxPrice: maxPrice,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, medicines)
	})
}

func handleGetMedicine(ms medicineService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "medicineId")
		if !ok {
			return
		}

		m, err := ms.Get(r.Context(), id)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, m)
	})
}

func handleCreateMedicine(ms medicineService, l logger.Logger) http.Handler {
	type request struct {
		Name          string          `json:"name" validate:"required"`
		Description   string          `json:"description" validate:"required"`
		Category      string          `json:"category" validate:"required,oneof=painkiller antibiotic vitamin supplement otc other"`
		Manufacturer  string          `json:"manufacturer" validate:"required"`
		Price         decimal.Decimal `json:"price" validate:"gt=0"`
		StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
		ImageURL      string          `json:"imageUrl" validate:"omitempty,url"`
		DosageForm    string          `json:"dosageForm" validate:"required,oneof=tablet capsule liquid injection cream ointment drops other"`
		Strength      string          `json:"strength"`
		ExpiryDate    time.Time       `json:"expiryDate" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		m, err := ms.Create(r.Context(), p.ID, medicine.CreateParams{
			Name:          data.Name,
			Description:   data.Description,
			Category:      data.Category,
			Manufacturer:  data.Manufacturer,
			Price:         data.Price,
			StockQuantity: data.StockQuantity,
			ImageURL:      data.ImageURL,
			DosageForm:    data.DosageForm,
			Strength:      data.Strength,
			ExpiryDate:    data.ExpiryDate,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSONWithStatus(w, m, http.StatusCreated)
	})
}

func handleUpdateMedicine(ms medicineService, l logger.Logger) http.Handler {
	type request struct {
		Name          *string          `json:"name" validate:"omitempty,min=1"`
		Description   *string          `json:"description"`
		Category      *string          `json:"category" validate:"omitempty,oneof=painkiller antibiotic vitamin supplement otc other"`
		Manufacturer  *string          `json:"manufacturer"`
		Price         *decimal.Decimal `json:"price" validate:"omitempty,gt=0"`
		StockQuantity *int             `json:"stockQuantity" validate:"omitempty,gte=0"`
		ImageURL      *string          `json:"imageUrl" validate:"omitempty,url"`
		DosageForm    *string          `json:"dosageForm" validate:"omitempty,oneof=tablet capsule liquid injection cream ointment drops other"`
		Strength      *string          `json:"strength"`
		IsActive      *bool            `json:"isActive"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "medicineId")
		if !ok {
			return
		}
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		m, err := ms.Update(r.Context(), p.ID, id, repository.MedicineUpdate{
			Name:          data.Name,
			Description:   data.Description,
			Category:      data.Category,
			Manufacturer:  data.Manufacturer,
			Price:         data.Price,
			StockQuantity: data.StockQuantity,
			ImageURL:      data.ImageURL,
			DosageForm:    data.DosageForm,
			Strength:      data.Strength,
			IsActive:      data.IsActive,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, m)
	})
}

func handleDeleteMedicine(ms medicineService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "medicineId")
		if !ok {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		if err := ms.Delete(r.Context(), p.ID, id); err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, messageResponse{Message: "Medicine deleted successfully"})
	})
}

func handlePlaceOrder(ms medicineService, l logger.Logger) http.Handler {
	type item struct {
		Medicine uuid.UUID `json:"medicine" validate:"required"`
		Quantity int       `json:"quantity" validate:"gte=1"`
	}
	type request struct {
		Medicines       []item                 `json:"medicines" validate:"required,min=1,dive"`
		ShippingAddress models.ShippingAddress `json:"shippingAddress"`
		Notes           string                 `json:"notes" validate:"max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		items := make([]models.OrderItem, 0, len(data.Medicines))
		for _, it := range data.Medicines {
			items = append(items, models.OrderItem{MedicineID: it.Medicine, Quantity: it.Quantity})
		}

		order, err := ms.PlaceOrder(r.Context(), p.ID, medicine.OrderParams{
			Items:           items,
			ShippingAddress: data.ShippingAddress,
			Notes:           data.Notes,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSONWithStatus(w, order, http.StatusCreated)
	})
}

func handleListMyOrders(ms medicineService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalctx.FromContext(r.Context())

		orders, err := ms.ListMyOrders(r.Context(), p.ID)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, orders)
	})
}

func handleGetOrder(ms medicineService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "orderId")
		if !ok {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		order, err := ms.GetOrder(r.Context(), p.ID, id)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, order)
	})
}

func handleListAllOrders(ms medicineService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orders, err := ms.ListAllOrders(r.Context(), repository.OrderFilter{
			Status:        r.URL.Query().Get("status"),
			PaymentStatus: r.URL.Query().Get("paymentStatus"),
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, orders)
	})
}

func handleUpdateOrderStatus(ms medicineService, l logger.Logger) http.Handler {
	type request struct {
		Status string `json:"status" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "orderId")
		if !ok {
			return
		}
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		order, err := ms.UpdateOrderStatus(r.Context(), id, data.Status)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, order)
	})
}

func handleMedicineStats(ms medicineService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := ms.Stats(r.Context())
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, stats)
	})
}
