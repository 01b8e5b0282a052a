package client

import (
	"context"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// Transport is the narrow collection interface the cache decorates.
type Transport interface {
	FetchPage(ctx context.Context, page int) (models.Page, error)
	Create(ctx context.Context, patch models.TransactionPatch) (models.Transaction, error)
	Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// PageCache stores fetched pages.
type PageCache interface {
	Get(index int) (models.Page, bool)
	Put(index int, page models.Page)
	InvalidateAll()
}

// CachedTransport serves pages from a PageCache and collapses concurrent misses
// for the same page into one underlying fetch. Successful mutations invalidate the cache.
type CachedTransport struct {
	next  Transport
	cache PageCache
	group singleflight.Group
	gen   atomic.Uint64
}

// NewCachedTransport decorates next with cache.
func NewCachedTransport(next Transport, cache PageCache) *CachedTransport {
	return &CachedTransport{next: next, cache: cache}
}

// FetchPage returns the cached page when fresh, otherwise fetches it once.
func (t *CachedTransport) FetchPage(ctx context.Context, page int) (models.Page, error) {
	if p, ok := t.cache.Get(page); ok {
		logger.Log.Debugw("page cache hit", "page", page)
		return p, nil
	}

	// the shared fetch outlives any single caller; each caller still honors its own ctx
	fetchCtx := context.WithoutCancel(ctx)
	ch := t.group.DoChan(strconv.Itoa(page), func() (any, error) {
		if p, ok := t.cache.Get(page); ok {
			return p, nil
		}
		gen := t.gen.Load()
		p, err := t.next.FetchPage(fetchCtx, page)
		if err != nil {
			return models.Page{}, err
		}
		// a mutation landed while fetching; the page may already be stale
		if t.gen.Load() == gen {
			t.cache.Put(page, p)
		}
		return p, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return models.Page{}, ctx.Err()
	}
	if res.Err != nil {
		return models.Page{}, res.Err
	}
	if res.Shared {
		logger.Log.Debugw("page fetch shared", "page", page)
	}
	return res.Val.(models.Page).Clone(), nil
}

// Create forwards to the wrapped transport and invalidates the cache on success.
func (t *CachedTransport) Create(ctx context.Context, patch models.TransactionPatch) (models.Transaction, error) {
	tx, err := t.next.Create(ctx, patch)
	if err != nil {
		return models.Transaction{}, err
	}
	t.InvalidateAll()
	return tx, nil
}

// Update forwards to the wrapped transport and invalidates the cache on success.
func (t *CachedTransport) Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error) {
	tx, err := t.next.Update(ctx, id, patch)
	if err != nil {
		return models.Transaction{}, err
	}
	t.InvalidateAll()
	return tx, nil
}

// Delete forwards to the wrapped transport. The cache is invalidated unless the call failed
// for a reason other than the record already being gone.
func (t *CachedTransport) Delete(ctx context.Context, id string) error {
	err := t.next.Delete(ctx, id)
	if err == nil || IsNotFound(err) {
		t.InvalidateAll()
	}
	return err
}

// InvalidateAll drops every cached page.
func (t *CachedTransport) InvalidateAll() {
	t.gen.Add(1)
	t.cache.InvalidateAll()
}
