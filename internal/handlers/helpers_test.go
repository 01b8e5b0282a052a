package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

var sample = models.Transaction{
	ID:          "t1",
	Date:        models.NewDate(2024, time.January, 3),
	Description: "Coffee",
	Amount:      decimal.RequireFromString("4.5"),
	Category:    models.Category{Name: "Food & Dining", Icon: "utensils", Color: "orange"},
}

// withURLParam attaches a chi route parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
