package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sbilibin2017/gw-transactions/internal/cache"
	"github.com/sbilibin2017/gw-transactions/internal/categories"
	"github.com/sbilibin2017/gw-transactions/internal/client"
	"github.com/sbilibin2017/gw-transactions/internal/models"
	"github.com/sbilibin2017/gw-transactions/internal/store"
)

// session is one store wired to the API for the lifetime of a command.
type session struct {
	store *store.Store
	more  *store.LoadMoreCoordinator
}

func newSession(v *viper.Viper, opts ...store.Option) *session {
	cats := categories.New()

	clientOpts := []client.Option{client.WithPageSize(v.GetInt("page-size"))}
	if token := v.GetString("token"); token != "" {
		clientOpts = append(clientOpts, client.WithToken(token))
	}
	api := client.New(v.GetString("api"), cats, clientOpts...)
	transport := client.NewCachedTransport(api, cache.New(v.GetDuration("cache-ttl"), nil))

	st := store.New(transport, cats, opts...)
	return &session{
		store: st,
		more:  store.NewLoadMoreCoordinator(st, nil, v.GetDuration("throttle")),
	}
}

func (s *session) Close() {
	s.store.Dispose()
}

// loadPages refreshes and keeps loading until n pages are loaded or nothing is left.
// n <= 0 loads everything.
func (s *session) loadPages(ctx context.Context, n int) error {
	if err := s.store.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	return s.loadUntil(ctx, func() bool {
		return n > 0 && s.store.Page()+1 >= n
	})
}

// find loads pages until id shows up in the list.
func (s *session) find(ctx context.Context, id string) (models.Transaction, error) {
	if err := s.store.Refresh(ctx); err != nil {
		return models.Transaction{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	var found *models.Transaction
	lookup := func() bool {
		for _, tx := range s.store.Transactions() {
			if tx.ID == id {
				found = &tx
				return true
			}
		}
		return false
	}
	if err := s.loadUntil(ctx, lookup); err != nil {
		return models.Transaction{}, err
	}
	if found == nil {
		return models.Transaction{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	return *found, nil
}

func (s *session) loadUntil(ctx context.Context, done func() bool) error {
	for !done() && s.store.HasMore() {
		started, err := s.more.Trigger(ctx, true)
		if err != nil {
			return fmt.Errorf("failed to load more transactions: %w", err)
		}
		if started {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return nil
}
