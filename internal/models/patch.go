package models

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxDescriptionLength is the maximum number of characters in a description.
const MaxDescriptionLength = 100

// MaxCategoryLength is the maximum number of characters in a category name.
const MaxCategoryLength = 50

// AmountScale is the number of decimal places an amount may carry.
const AmountScale = 2

// maxAmount bounds amounts to what a NUMERIC(20,2) column holds.
var maxAmount = decimal.New(1, 18)

// TransactionPatch carries the fields of a create or update. Nil fields are absent.
type TransactionPatch struct {
	Date        *Date
	Description *string
	Amount      *decimal.Decimal
	Category    *string // bare category name, enriched through the category catalog
}

// IsEmpty reports whether no field is present.
func (p TransactionPatch) IsEmpty() bool {
	return p.Date == nil && p.Description == nil && p.Amount == nil && p.Category == nil
}

// ValidateCreate checks a patch used to create a transaction.
func (p TransactionPatch) ValidateCreate() error {
	if p.Description == nil {
		return NewValidationError("description", "description is required")
	}
	if p.Amount == nil {
		return NewValidationError("amount", "amount must be greater than 0")
	}
	return p.validatePresent()
}

// ValidateUpdate checks only the fields present in the patch.
func (p TransactionPatch) ValidateUpdate() error {
	if p.IsEmpty() {
		return NewValidationError("", "no fields to update")
	}
	return p.validatePresent()
}

func (p TransactionPatch) validatePresent() error {
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc == "" {
			return NewValidationError("description", "description is required")
		}
		if utf8.RuneCountInString(desc) > MaxDescriptionLength {
			return NewValidationError("description", "description must be at most 100 characters")
		}
	}
	if p.Amount != nil {
		switch {
		case !p.Amount.IsPositive():
			return NewValidationError("amount", "amount must be greater than 0")
		case !p.Amount.Equal(p.Amount.Truncate(AmountScale)):
			return NewValidationError("amount", "amount must have at most 2 decimal places")
		case p.Amount.GreaterThanOrEqual(maxAmount):
			return NewValidationError("amount", "amount is too large")
		}
	}
	if p.Date != nil && p.Date.IsZero() {
		return NewValidationError("date", "date is required")
	}
	if p.Category != nil {
		name := strings.TrimSpace(*p.Category)
		if name == "" {
			return NewValidationError("category", "category name is required")
		}
		if utf8.RuneCountInString(name) > MaxCategoryLength {
			return NewValidationError("category", "category name must be at most 50 characters")
		}
	}
	return nil
}

// TransactionRequest is the body of POST and PUT requests. Absent fields are omitted.
// swagger:model TransactionRequest
type TransactionRequest struct {
	// Calendar date, YYYY-MM-DD
	// example: 2024-01-03
	Date *Date `json:"date,omitempty"`

	// Description
	// example: Coffee
	Description *string `json:"description,omitempty"`

	// Positive amount
	// example: 5
	Amount *decimal.Decimal `json:"amount,omitempty"`

	// Category; only the name is authoritative
	Category *Category `json:"category,omitempty"`
}

// MarshalJSON encodes the amount as a JSON number.
func (r TransactionRequest) MarshalJSON() ([]byte, error) {
	var amount *json.Number
	if r.Amount != nil {
		n := json.Number(r.Amount.String())
		amount = &n
	}
	return json.Marshal(struct {
		Date        *Date        `json:"date,omitempty"`
		Description *string      `json:"description,omitempty"`
		Amount      *json.Number `json:"amount,omitempty"`
		Category    *Category    `json:"category,omitempty"`
	}{r.Date, r.Description, amount, r.Category})
}

// Patch converts the request into a TransactionPatch, keeping only the category name.
func (r TransactionRequest) Patch() TransactionPatch {
	p := TransactionPatch{
		Date:        r.Date,
		Description: r.Description,
		Amount:      r.Amount,
	}
	if r.Description != nil {
		desc := strings.TrimSpace(*r.Description)
		p.Description = &desc
	}
	if r.Category != nil {
		name := r.Category.Name
		p.Category = &name
	}
	return p
}

// NewTransactionRequest builds a request body from a patch and its resolved category.
func NewTransactionRequest(p TransactionPatch, category *Category) TransactionRequest {
	req := TransactionRequest{
		Date:        p.Date,
		Description: p.Description,
		Amount:      p.Amount,
		Category:    category,
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		req.Description = &desc
	}
	return req
}
