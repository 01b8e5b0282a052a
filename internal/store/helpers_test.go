package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-transactions/internal/categories"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

var (
	food  = models.Category{Name: "Food", Icon: "utensils", Color: "orange"}
	other = models.Category{Name: "Other", Icon: "credit-card", Color: "gray"}
)

func testCatalog() *categories.Catalog {
	return categories.New(food, other)
}

func tx(id string, day int, desc string) models.Transaction {
	return models.Transaction{
		ID:          id,
		Date:        models.NewDate(2024, time.January, day),
		Description: desc,
		Amount:      decimal.NewFromInt(10),
		Category:    other,
	}
}

func strPtr(s string) *string { return &s }

func amountPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func ids(txs []models.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}

func recordIDs(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

// --- Fake transport ---
type fakeTransport struct {
	mu        sync.Mutex
	pages     map[int]models.Page
	fetchErr  error
	gates     map[int]chan struct{}
	entered   chan int
	createErr error
	created   models.Transaction
	gate      chan struct{}
	updateErr error
	deleteErr error

	fetchCalls  map[int]int
	creates     atomic.Int32
	updates     atomic.Int32
	deletes     atomic.Int32
	invalidated atomic.Int32
	lastPatch   models.TransactionPatch
}

func newFakeTransport(pages ...models.Page) *fakeTransport {
	f := &fakeTransport{
		pages:      make(map[int]models.Page),
		gates:      make(map[int]chan struct{}),
		fetchCalls: make(map[int]int),
	}
	for _, p := range pages {
		f.pages[p.Index] = p
	}
	return f
}

func (f *fakeTransport) calls(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[page]
}

func (f *fakeTransport) FetchPage(ctx context.Context, page int) (models.Page, error) {
	f.mu.Lock()
	f.fetchCalls[page]++
	gate := f.gates[page]
	err := f.fetchErr
	p, ok := f.pages[page]
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- page
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return models.Page{}, err
	}
	if !ok {
		return models.Page{Index: page}, nil
	}
	return p.Clone(), nil
}

func (f *fakeTransport) Create(ctx context.Context, patch models.TransactionPatch) (models.Transaction, error) {
	f.creates.Add(1)
	f.mu.Lock()
	f.lastPatch = patch
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.createErr != nil {
		return models.Transaction{}, f.createErr
	}
	return f.created, nil
}

func (f *fakeTransport) Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error) {
	f.updates.Add(1)
	if f.updateErr != nil {
		return models.Transaction{}, f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pages {
		for _, t := range p.Items {
			if t.ID != id {
				continue
			}
			if patch.Amount != nil {
				t.Amount = *patch.Amount
			}
			if patch.Description != nil {
				t.Description = *patch.Description
			}
			if patch.Date != nil {
				t.Date = *patch.Date
			}
			return t, nil
		}
	}
	return models.Transaction{}, models.ErrNotFound
}

func (f *fakeTransport) Delete(ctx context.Context, id string) error {
	f.deletes.Add(1)
	return f.deleteErr
}

func (f *fakeTransport) InvalidateAll() {
	f.invalidated.Add(1)
}

var errBackend = errors.New("backend unavailable")
