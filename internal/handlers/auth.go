package handlers

import (
	"net/http"

	"github.com/nkiryanov/earlypulse/internal/handlers/principalctx"
	"github.com/nkiryanov/earlypulse/internal/handlers/render"
	"github.com/nkiryanov/earlypulse/internal/logger"
	"github.com/nkiryanov/earlypulse/internal/models"
)

type messageResponse struct {
	Message string `json:"message"`
}

// Accepts "email" or "identifier" for the login name
func handleLogin(as authService, kind models.Kind, l logger.Logger) http.Handler {
	type request struct {
		Email      string `json:"email" validate:"required_without=Identifier"`
		Identifier string `json:"identifier"`
		Password   string `json:"password" validate:"required"`
	}
	type response struct {
		Principal    models.Principal `json:"principal"`
		AccessToken  string           `json:"accessToken"`
		RefreshToken string           `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		email := data.Email
		if email == "" {
			email = data.Identifier
		}

		session, err := as.Login(r.Context(), kind, email, data.Password)
		if err != nil {
			render.AppError(w, err, l)
			return
		}

		as.SetTokens(w, session.Tokens)
		render.JSON(w, response{
			Principal:    session.Principal,
			AccessToken:  session.Tokens.Access.Value,
			RefreshToken: session.Tokens.Refresh.Value,
		})
	})
}

func handleRefresh(as authService, l logger.Logger) http.Handler {
	type response struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pair, err := as.Refresh(r.Context(), as.RefreshFromRequest(r))
		if err != nil {
			render.AppError(w, err, l)
			return
		}

		as.SetTokens(w, pair)
		render.JSON(w, response{AccessToken: pair.Access.Value, RefreshToken: pair.Refresh.Value})
	})
}

func handleLogout(as authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalctx.FromContext(r.Context())

		if err := as.Logout(r.Context(), p.Kind, p.ID); err != nil {
			render.AppError(w, err, l)
			return
		}

		as.ClearTokens(w)
		render.JSON(w, messageResponse{Message: "Logged out successfully"})
	})
}

func handleVerifyToken() http.Handler {
	type response struct {
		Success bool             `json:"success"`
		Data    models.Principal `json:"data"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalctx.FromContext(r.Context())
		render.JSON(w, response{Success: true, Data: p})
	})
}

func handleChangePassword(as authService, l logger.Logger) http.Handler {
	type request struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		p, _ := principalctx.FromContext(r.Context())

		if err := as.ChangePassword(r.Context(), p.Kind, p.ID, data.OldPassword, data.NewPassword); err != nil {
			render.AppError(w, err, l)
			return
		}

		render.JSON(w, messageResponse{Message: "Password changed successfully"})
	})
}

func handleDeleteAccount(as authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalctx.FromContext(r.Context())

		if err := as.DeleteAccount(r.Context(), p.Kind, p.ID); err != nil {
			render.AppError(w, err, l)
			return
		}

		as.ClearTokens(w)
		render.JSON(w, messageResponse{Message: "Account deleted successfully"})
	})
}
