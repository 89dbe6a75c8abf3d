package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-poster-orders/internal/orders"
)

type errorBody struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Message: msg, Success: false})
}

const msgServerError = "Server error"

// orderError maps an order error to a status code and a user-facing message.
// Storage details never leave the process.
func orderError(err error) (int, string) {
	switch {
	case errors.Is(err, orders.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, orders.ErrItemNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, orders.ErrInsufficientStock):
		return http.StatusConflict, err.Error()
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, orders.ErrUnknownUser):
		return http.StatusUnauthorized, "User not found"
	default:
		return http.StatusInternalServerError, msgServerError
	}
}
