package handlers

import (
	"net/http"

	"github.com/nkiryanov/earlypulse/internal/handlers/principalctx"
	"github.com/nkiryanov/earlypulse/internal/handlers/render"
	"github.com/nkiryanov/earlypulse/internal/logger"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/service/doctor"
)

func handleRegisterDoctor(ds doctorService, l logger.Logger) http.Handler {
	type request struct {
		Email          string `json:"email" validate:"required,email"`
		Password       string `json:"password" validate:"required,min=6"`
		Name           string `json:"name" validate:"required"`
		PhoneNumber    string `json:"phoneNumber"`
		Address        string `json:"address"`
		Specialization string `json:"specialization" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		d, err := ds.Register(r.Context(), doctor.RegisterParams{
			Email:          data.Email,
			Password:       data.Password,
			Name:           data.Name,
			PhoneNumber:    data.PhoneNumber,
			Address:        data.Address,
			Specialization: data.Specialization,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}

		render.JSONWithStatus(w, d, http.StatusCreated)
	})
}

func handleCurrentDoctor(ds doctorService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalctx.FromContext(r.Context())

		d, err := ds.Get(r.Context(), p.ID)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, d)
	})
}

func handleUpdateDoctor(ds doctorService, l logger.Logger) http.Handler {
	type request struct {
		Name           *string `json:"name" validate:"omitempty,min=1"`
		PhoneNumber    *string `json:"phoneNumber"`
		Address        *string `json:"address"`
		Specialization *string `json:"specialization" validate:"omitempty,min=1"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		d, err := ds.Update(r.Context(), p.ID, repository.DoctorUpdate{
			Name:           data.Name,
			PhoneNumber:    data.PhoneNumber,
			Address:        data.Address,
			Specialization: data.Specialization,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, d)
	})
}

// Without specialization path value lists all doctors
func handleListDoctors(ds doctorService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doctors, err := ds.List(r.Context(), r.PathValue("specialization"))
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, doctors)
	})
}
