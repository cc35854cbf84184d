package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/earlypulse/internal/handlers/middleware"
	"github.com/nkiryanov/earlypulse/internal/logger"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/ratelimit"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/service/doctor"
	"github.com/nkiryanov/earlypulse/internal/service/lab"
	"github.com/nkiryanov/earlypulse/internal/service/medicine"
	"github.com/nkiryanov/earlypulse/internal/service/user"
)

const apiPrefix = "/api/v1"

// Mount point of account routes per principal kind
var kindPrefixes = map[models.Kind]string{
	models.KindUser:   apiPrefix + "/users",
	models.KindDoctor: apiPrefix + "/doctors",
	models.KindLab:    apiPrefix + "/labs",
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	Auth     authService
	User     userService
	Doctor   doctorService
	Lab      labService
	Medicine medicineService
}

type Options struct {
	Logger logger.Logger

	// Request metrics and /metrics endpoint. Nil disables both
	Metrics metricsCollector

	// Throttles login and refresh-token. Nil disables throttling
	Limiter rateLimiter
}

type router struct {
	mux  *http.ServeMux
	opts Options
}

// Registers handler with per route metrics
func (rt *router) handle(pattern string, h http.Handler, mds ...func(http.Handler) http.Handler) {
	if rt.opts.Metrics != nil {
		mds = append([]func(http.Handler) http.Handler{middleware.Metrics(rt.opts.Metrics, pattern)}, mds...)
	}
	rt.mux.Handle(pattern, chain(h, mds...))
}

func (rt *router) throttled(pattern string, h http.Handler) {
	if rt.opts.Limiter == nil {
		rt.handle(pattern, h)
		return
	}
	rt.handle(pattern, h, middleware.RateLimit(rt.opts.Limiter, pattern, rt.opts.Logger))
}

func NewRouter(s Services, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	l := opts.Logger
	rt := &router{mux: http.NewServeMux(), opts: opts}

	withAuth := middleware.Auth(s.Auth, l)
	kind := func(k models.Kind) func(http.Handler) http.Handler {
		return middleware.RequireKind(k)
	}
	medicalOwner := middleware.RequireRole(models.RoleMedicalOwner)

	// Session routes, same for every kind
	for k, prefix := range kindPrefixes {
		rt.throttled("POST "+prefix+"/login", handleLogin(s.Auth, k, l))
		rt.throttled("POST "+prefix+"/refresh-token", handleRefresh(s.Auth, l))
		rt.handle("POST "+prefix+"/logout", handleLogout(s.Auth, l), withAuth, kind(k))
		rt.handle("GET "+prefix+"/verify-token", handleVerifyToken(), withAuth)
		rt.handle("POST "+prefix+"/change-password", handleChangePassword(s.Auth, l), withAuth, kind(k))
		rt.handle("DELETE "+prefix+"/delete", handleDeleteAccount(s.Auth, l), withAuth, kind(k))
	}

	users := kindPrefixes[models.KindUser]
	rt.handle("POST "+users+"/register", handleRegisterUser(s.User, l))
	rt.handle("GET "+users+"/current", handleCurrentUser(s.User, l), withAuth, kind(models.KindUser))
	rt.handle("PATCH "+users+"/update", handleUpdateUser(s.User, l), withAuth, kind(models.KindUser))

	doctors := kindPrefixes[models.KindDoctor]
	rt.handle("POST "+doctors+"/register", handleRegisterDoctor(s.Doctor, l))
	rt.handle("GET "+doctors+"/current", handleCurrentDoctor(s.Doctor, l), withAuth, kind(models.KindDoctor))
	rt.handle("PATCH "+doctors+"/update", handleUpdateDoctor(s.Doctor, l), withAuth, kind(models.KindDoctor))
	rt.handle("GET "+doctors+"/all", handleListDoctors(s.Doctor, l))
	rt.handle("GET "+doctors+"/specialization/{specialization}", handleListDoctors(s.Doctor, l))

	labs := kindPrefixes[models.KindLab]
	rt.handle("POST "+labs+"/register", handleRegisterLab(s.Lab, l))
	rt.handle("GET "+labs+"/current", handleCurrentLab(s.Lab, l), withAuth, kind(models.KindLab))
	rt.handle("PATCH "+labs+"/update", handleUpdateLab(s.Lab, l), withAuth, kind(models.KindLab))
	rt.handle("GET "+labs+"/all", handleListLabs(s.Lab, l))
	rt.handle("GET "+labs+"/test/{testName}", handleListLabs(s.Lab, l))
	rt.handle("GET "+labs+"/blood-type/{bloodType}", handleListLabs(s.Lab, l))
	rt.handle("GET "+labs+"/search", handleListLabs(s.Lab, l))
	rt.handle("POST "+labs+"/add-test", handleAddTest(s.Lab, l), withAuth, kind(models.KindLab))
	rt.handle("DELETE "+labs+"/remove-test", handleRemoveTest(s.Lab, l), withAuth, kind(models.KindLab))
	rt.handle("PATCH "+labs+"/update-inventory", handleUpdateInventory(s.Lab, l), withAuth, kind(models.KindLab))

	medicines := apiPrefix + "/medicines"
	rt.handle("GET "+medicines+"/all", handleListMedicines(s.Medicine, l))
	rt.handle("POST "+medicines+"/order", handlePlaceOrder(s.Medicine, l), withAuth, kind(models.KindUser))
	rt.handle("GET "+medicines+"/orders", handleListMyOrders(s.Medicine, l), withAuth)
	rt.handle("GET "+medicines+"/order/{orderId}", handleGetOrder(s.Medicine, l), withAuth)
	rt.handle("POST "+medicines+"/create", handleCreateMedicine(s.Medicine, l), withAuth, kind(models.KindUser), medicalOwner)
	rt.handle("GET "+medicines+"/orders/all", handleListAllOrders(s.Medicine, l), withAuth, medicalOwner)
	rt.handle("GET "+medicines+"/stats", handleMedicineStats(s.Medicine, l), withAuth, medicalOwner)
	rt.handle("PATCH "+medicines+"/order/{orderId}/status", handleUpdateOrderStatus(s.Medicine, l), withAuth, medicalOwner)
	rt.handle("GET "+medicines+"/{medicineId}", handleGetMedicine(s.Medicine, l), withAuth)
	rt.handle("PATCH "+medicines+"/{medicineId}", handleUpdateMedicine(s.Medicine, l), withAuth, medicalOwner)
	rt.handle("DELETE "+medicines+"/{medicineId}", handleDeleteMedicine(s.Medicine, l), withAuth, medicalOwner)

	rt.handle("GET "+apiPrefix+"/health", handleHealth())
	if opts.Metrics != nil {
		rt.mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	return chain(rt.mux,
		middleware.LoggerMiddleware(l),
	)
}

type authService interface {
	// Unknown email and wrong password must both return apperrors.ErrInvalidCredentials
	Login(ctx context.Context, kind models.Kind, email string, password string) (models.Session, error)
	Logout(ctx context.Context, kind models.Kind, id uuid.UUID) error

	// Rotate refresh token. Replayed token must return apperrors.ErrRefreshTokenIsUsed
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	ChangePassword(ctx context.Context, kind models.Kind, id uuid.UUID, oldPassword string, newPassword string) error
	DeleteAccount(ctx context.Context, kind models.Kind, id uuid.UUID) error

	SetTokens(w http.ResponseWriter, pair models.TokenPair)
	ClearTokens(w http.ResponseWriter)
	RefreshFromRequest(r *http.Request) string
	PrincipalFromRequest(r *http.Request) (models.Principal, error)
}

type userService interface {
	Register(ctx context.Context, p user.RegisterParams) (models.User, error)
	Get(ctx context.Context, id uuid.UUID) (models.User, error)
	Update(ctx context.Context, id uuid.UUID, upd repository.UserUpdate) (models.User, error)
}

type doctorService interface {
	Register(ctx context.Context, p doctor.RegisterParams) (models.Doctor, error)
	Get(ctx context.Context, id uuid.UUID) (models.Doctor, error)
	Update(ctx context.Context, id uuid.UUID, upd repository.DoctorUpdate) (models.Doctor, error)
	List(ctx context.Context, specialization string) ([]models.Doctor, error)
}

type labService interface {
	Register(ctx context.Context, p lab.RegisterParams) (models.Lab, error)
	Get(ctx context.Context, id uuid.UUID) (models.Lab, error)
	Update(ctx context.Context, id uuid.UUID, upd repository.LabUpdate) (models.Lab, error)
	List(ctx context.Context, f repository.LabFilter) ([]models.Lab, error)
	AddTest(ctx context.Context, id uuid.UUID, test string) (models.Lab, error)
	RemoveTest(ctx context.Context, id uuid.UUID, test string) (models.Lab, error)
	UpdateInventory(ctx context.Context, id uuid.UUID, bt models.BloodType, quantity int) (models.Lab, error)
}

type medicineService interface {
	List(ctx context.Context, f repository.MedicineFilter) ([]models.Medicine, error)
	Get(ctx context.Context, id uuid.UUID) (models.Medicine, error)
	Create(ctx context.Context, createdBy uuid.UUID, p medicine.CreateParams) (models.Medicine, error)
	Update(ctx context.Context, by uuid.UUID, id uuid.UUID, upd repository.MedicineUpdate) (models.Medicine, error)
	Delete(ctx context.Context, by uuid.UUID, id uuid.UUID) error

	// Must return apperrors.ErrInsufficientStock when any item can't be served
	PlaceOrder(ctx context.Context, userID uuid.UUID, p medicine.OrderParams) (models.Order, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	GetOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (models.Order, error)
	ListAllOrders(ctx context.Context, f repository.OrderFilter) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (models.Order, error)
	Stats(ctx context.Context) (models.MedicineStats, error)
}

type metricsCollector interface {
	ObserveRequest(method string, route string, status int, elapsed time.Duration)
	Handler() http.Handler
}

type rateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
	Capacity() int
}
