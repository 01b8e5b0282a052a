package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

//go:generate mockgen -source=list.go -destination=list_mock.go -package=handlers

// TransactionLister defines the interface that the service must implement.
type TransactionLister interface {
	List(ctx context.Context, page, pageSize int) (models.TransactionsResponse, error)
}

// NewListTransactionsHandler returns an HTTP handler that serves one page of transactions.
// @Summary List transactions
// @Description Returns one page of transactions, newest first. Pages start at 0.
// @Tags transactions
// @Produce json
// @Param page query int false "Page index" default(0)
// @Param pageSize query int false "Page size (max 100)" default(20)
// @Success 200 {object} models.TransactionsResponse
// @Failure 400 {object} models.ErrorResponse "Invalid paging parameters"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /transactions [get]
// @Security BearerAuth
func NewListTransactionsHandler(svc TransactionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		page, err := intQuery(r, "page", 0)
		if err != nil || page < 0 {
			logger.Log.Warnw("invalid page parameter", "page", r.URL.Query().Get("page"))
			writeError(w, http.StatusBadRequest, "Invalid page")
			return
		}
		pageSize, err := intQuery(r, "pageSize", 0)
		if err != nil || pageSize < 0 {
			logger.Log.Warnw("invalid pageSize parameter", "pageSize", r.URL.Query().Get("pageSize"))
			writeError(w, http.StatusBadRequest, "Invalid pageSize")
			return
		}

		resp, err := svc.List(ctx, page, pageSize)
		if err != nil {
			writeServiceError(w, err, "list", "")
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func intQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
