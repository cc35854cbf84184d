package handlers

import (
	"net/http"

	"github.com/nkiryanov/earlypulse/internal/handlers/principalctx"
	"github.com/nkiryanov/earlypulse/internal/handlers/render"
	"github.com/nkiryanov/earlypulse/internal/logger"
	"github.com/nkiryanov/earlypulse/internal/models"
	"github.com/nkiryanov/earlypulse/internal/repository"
	"github.com/nkiryanov/earlypulse/internal/service/lab"
)

func handleRegisterLab(ls labService, l logger.Logger) http.Handler {
	type request struct {
		Email        string   `json:"email" validate:"required,email"`
		Password     string   `json:"password" validate:"required,min=6"`
		Name         string   `json:"name" validate:"required"`
		PhoneNumber  string   `json:"phoneNumber"`
		Address      string   `json:"address" validate:"required"`
		TestsOffered []string `json:"testsOffered"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		created, err := ls.Register(r.Context(), lab.RegisterParams{
			Email:        data.Email,
			Password:     data.Password,
			Name:         data.Name,
			PhoneNumber:  data.PhoneNumber,
			Address:      data.Address,
			TestsOffered: data.TestsOffered,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}

		render.JSONWithStatus(w, created, http.StatusCreated)
	})
}

func handleCurrentLab(ls labService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalctx.FromContext(r.Context())

		found, err := ls.Get(r.Context(), p.ID)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, found)
	})
}

func handleUpdateLab(ls labService, l logger.Logger) http.Handler {
	type request struct {
		Name        *string `json:"name" validate:"omitempty,min=1"`
		PhoneNumber *string `json:"phoneNumber"`
		Address     *string `json:"address"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		updated, err := ls.Update(r.Context(), p.ID, repository.LabUpdate{
			Name:        data.Name,
			PhoneNumber: data.PhoneNumber,
			Address:     data.Address,
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, updated)
	})
}

// Filter comes from path values testName, bloodType or query parameter location
func handleListLabs(ls labService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		labs, err := ls.List(r.Context(), repository.LabFilter{
			Test:      r.PathValue("testName"),
			BloodType: models.BloodType(r.PathValue("bloodType")),
			Location:  r.URL.Query().Get("location"),
		})
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, labs)
	})
}

type testRequest struct {
	TestName string `json:"testName" validate:"required"`
}

func handleAddTest(ls labService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[testRequest](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		updated, err := ls.AddTest(r.Context(), p.ID, data.TestName)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, updated)
	})
}

func handleRemoveTest(ls labService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[testRequest](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		updated, err := ls.RemoveTest(r.Context(), p.ID, data.TestName)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, updated)
	})
}

func handleUpdateInventory(ls labService, l logger.Logger) http.Handler {
	type request struct {
		BloodType string `json:"bloodType" validate:"required,bloodtype"`
		Quantity  *int   `json:"quantity" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		updated, err := ls.UpdateInventory(r.Context(), p.ID, models.BloodType(data.BloodType), *data.Quantity)
		if err != nil {
			render.AppError(w, err, l)
			return
		}
		render.JSON(w, updated)
	})
}
