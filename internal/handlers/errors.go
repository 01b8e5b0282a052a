package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an ErrorResponse with the given status code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

// writeServiceError maps a service error onto a status code.
func writeServiceError(w http.ResponseWriter, err error, op, id string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.Log.Warnw("rejected transaction request", "op", op, "id", id, "error", err)
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, models.ErrNotFound):
		logger.Log.Infow("transaction not found", "op", op, "id", id)
		writeError(w, http.StatusNotFound, "Transaction not found")
	default:
		logger.Log.Errorw("failed to "+op+" transaction", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
