package handlers

import (
	"net/http"
	"time"

	"github.com/nkiryanov/earlypulse/internal/handlers/render"
)

func handleHealth() http.Handler {
	type response struct {
		Success   bool      `json:"success"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		render.JSON(w, response{Success: true, Message: "EarlyPulse API is running", Timestamp: time.Now().UTC()})
	})
}
