package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

//go:generate mockgen -source=update.go -destination=update_mock.go -package=handlers

// TransactionUpdater defines the interface that the service must implement.
type TransactionUpdater interface {
	Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error)
}

// NewUpdateTransactionHandler returns an HTTP handler that updates the present fields of a transaction.
// @Summary Update transaction
// @Description Changes only the fields present in the body.
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body models.TransactionRequest true "Fields to change"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} models.ErrorResponse "Invalid transaction"
// @Failure 404 {object} models.ErrorResponse "Transaction not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /transactions/{id} [put]
// @Security BearerAuth
func NewUpdateTransactionHandler(svc TransactionUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")

		var req models.TransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode update request", "id", id, "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		tx, err := svc.Update(ctx, id, req.Patch())
		if err != nil {
			writeServiceError(w, err, "update", id)
			return
		}

		writeJSON(w, http.StatusOK, tx)
	}
}
