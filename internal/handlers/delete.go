package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:generate mockgen -source=delete.go -destination=delete_mock.go -package=handlers

// TransactionDeleter defines the interface that the service must implement.
type TransactionDeleter interface {
	Delete(ctx context.Context, id string) error
}

// NewDeleteTransactionHandler returns an HTTP handler that deletes a transaction.
// @Summary Delete transaction
// @Tags transactions
// @Param id path string true "Transaction ID"
// @Success 204 "Deleted"
// @Failure 404 {object} models.ErrorResponse "Transaction not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /transactions/{id} [delete]
// @Security BearerAuth
func NewDeleteTransactionHandler(svc TransactionDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := svc.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err, "delete", id)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
