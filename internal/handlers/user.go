package handlers

import (
	"net/http"

	"github.com/nkiryanov/earlypulse/internal/handlers/principalctx"
	"github.com/nkiryanov/earlypulse/internal/handlers/render"
	"github.com/nkiryanov/earlypulse/internal/logger"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/service/user"
)

func handleRegisterUser(us userService, l logger.Logger) http.Handler {
	type request struct {
		Email                  string `json:"email" validate:"required,email"`
		Password               string `json:"password" validate:"required,min=6"`
		Name                   string `json:"name" validate:"required"`
		Role                   string `json:"role" validate:"omitempty,oneof=user medicalOwner admin"`
		PhoneNumber            string `json:"phoneNumber" validate:"required"`
		Address                string `json:"address" validate:"required"`
		EmergencyContactNumber string `json:"emergencyContactNumber" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		u, err := us.Register(r.Context(), user.RegisterParams{
			Email:                  data.Email,
			Password:               data.Password,
			Name:                   data.Name,
			Role:                   data.Role,
			PhoneNumber:            data.PhoneNumber,
			Address:                data.Address,
			EmergencyContactNumber: data.EmergencyContactNumber,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}

		render.JSONWithStatus(w, u, http.StatusCreated)
	})
}

func handleCurrentUser(us userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalctx.FromContext(r.Context())

		u, err := us.Get(r.Context(), p.ID)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, u)
	})
}

// Only whitelisted fields can be changed, email and role are not among them
func handleUpdateUser(us userService, l logger.Logger) http.Handler {
	type request struct {
		Name                   *string `json:"name" validate:"omitempty,min=1"`
		PhoneNumber            *string `json:"phoneNumber"`
		Address                *string `json:"address"`
		EmergencyContactNumber *string `json:"emergencyContactNumber"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		u, err := us.Update(r.Context(), p.ID, repository.UserUpdate{
			Name:                   data.Name,
			PhoneNumber:            data.PhoneNumber,
			Address:                data.Address,
			EmergencyContactNumber: data.EmergencyContactNumber,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, u)
	})
}
