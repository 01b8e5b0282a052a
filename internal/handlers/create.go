package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

//go:generate mockgen -source=create.go -destination=create_mock.go -package=handlers

// TransactionCreator defines the interface that the service must implement.
type TransactionCreator interface {
	Create(ctx context.Context, patch models.TransactionPatch) (models.Transaction, error)
}

// NewCreateTransactionHandler returns an HTTP handler that creates a transaction.
// @Summary Create transaction
// @Description Creates a transaction. Date defaults to today and category to Other.
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body models.TransactionRequest true "Transaction"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} models.ErrorResponse "Invalid transaction"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /transactions [post]
// @Security BearerAuth
func NewCreateTransactionHandler(svc TransactionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req models.TransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Errorw("failed to decode create request", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		tx, err := svc.Create(ctx, req.Patch())
		if err != nil {
			writeServiceError(w, err, "create", "")
			return
		}

		writeJSON(w, http.StatusCreated, tx)
	}
}
