package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrPrincipalAlreadyExists = errors.New("account with this email already exists")
	ErrPrincipalNotFound      = errors.New("account not found")
	ErrUnknownPrincipalKind   = errors.New("invalid entity type in token")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordEmpty      = errors.New("password is empty")
	ErrOldPasswordInvalid = errors.New("invalid old password")

	ErrTokenMissing       = errors.New("unauthorized request")
	ErrTokenInvalid       = errors.New("invalid access token")
	ErrRefreshTokenIsUsed = errors.New("refresh token is expired or used")

	ErrForbidden   = errors.New("access denied")
	ErrRateLimited = errors.New("too many requests")

	ErrInvalidBloodType = errors.New("invalid blood type")
	ErrTestNameEmpty    = errors.New("test name is required")

	ErrMedicineNotFound    = errors.New("medicine not found")
	ErrMedicineUnavailable = errors.New("medicine is not available")
	ErrPriceInvalid        = errors.New("price must be positive with at most two decimal places")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderEmpty          = errors.New("order must contain at least one medicine")
	ErrOrderStatusInvalid  = errors.New("invalid order status")
)

// HTTPStatus maps an application error to the response status code.
// Anything unknown is an internal error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenMissing),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrRefreshTokenIsUsed),
		errors.Is(err, ErrUnknownPrincipalKind):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPrincipalAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrPrincipalNotFound),
		errors.Is(err, ErrMedicineNotFound),
		errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrPasswordEmpty),
		errors.Is(err, ErrOldPasswordInvalid),
		errors.Is(err, ErrInvalidBloodType),
		errors.Is(err, ErrTestNameEmpty),
		errors.Is(err, ErrMedicineUnavailable),
		errors.Is(err, ErrPriceInvalid),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrOrderEmpty),
		errors.Is(err, ErrOrderStatusInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var known = []error{
	ErrPrincipalAlreadyExists, ErrPrincipalNotFound, ErrUnknownPrincipalKind,
	ErrInvalidCredentials, ErrPasswordEmpty, ErrOldPasswordInvalid,
	ErrTokenMissing, ErrTokenInvalid, ErrRefreshTokenIsUsed,
	ErrForbidden, ErrRateLimited,
	ErrInvalidBloodType, ErrTestNameEmpty,
	ErrMedicineNotFound, ErrMedicineUnavailable, ErrPriceInvalid, ErrInsufficientStock,
	ErrOrderNotFound, ErrOrderEmpty, ErrOrderStatusInvalid,
}

// Message safe to show to the client.
// Text of the matched sentinel, wrapping details are dropped
func Message(err error) string {
	for _, e := range known {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "internal server error"
}
