package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Category describes how a transaction is grouped and presented.
type Category struct {
	Name  string `json:"name"`  // Category name, e.g. "Shopping"
	Icon  string `json:"icon"`  // Icon key passed through to the presentation layer
	Color string `json:"color"` // Color key passed through to the presentation layer
}

// Transaction is a single financial event.
// swagger:model Transaction
type Transaction struct {
	ID          string          // Opaque unique identifier
	Date        Date            // Calendar date of the event
	Description string          // Non-empty, at most MaxDescriptionLength characters
	Amount      decimal.Decimal // Strictly positive amount
	Category    Category        // Enriched category
}

// transactionJSON is the wire shape of a Transaction.
type transactionJSON struct {
	ID          string      `json:"id"`
	Date        Date        `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    Category    `json:"category"`
}

// MarshalJSON encodes the amount as a JSON number and the date as YYYY-MM-DD.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:          t.ID,
		Date:        t.Date,
		Description: t.Description,
		Amount:      json.Number(t.Amount.String()),
		Category:    t.Category,
	})
}

// UnmarshalJSON accepts the amount as a number or a numeric string.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Transaction{
		ID:          raw.ID,
		Date:        raw.Date,
		Description: raw.Description,
		Amount:      raw.Amount,
		Category:    raw.Category,
	}
	return nil
}

// Page is one batch of transactions returned by a paged fetch.
type Page struct {
	Index   int
	Items   []Transaction
	HasMore bool
}

// Clone returns a copy of the page that shares no slice storage with p.
func (p Page) Clone() Page {
	items := make([]Transaction, len(p.Items))
	copy(items, p.Items)
	return Page{Index: p.Index, Items: items, HasMore: p.HasMore}
}

// TransactionsResponse is the body of a paged list response.
// swagger:model TransactionsResponse
type TransactionsResponse struct {
	// Transactions on the requested page, newest first
	Transactions []Transaction `json:"transactions"`

	// Whether a further page exists
	// example: true
	HasMore bool `json:"hasMore"`
}

// ErrorResponse is the body of every non-2xx API response.
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// example: invalid amount: must be greater than 0
	Error string `json:"error"`
}
