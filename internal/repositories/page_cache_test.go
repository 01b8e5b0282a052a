package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

func TestPageCacheRepository(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	// Start Redis container
	req := testcontainers.ContainerRequest{
		Image:        "redis:7.0-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer redisC.Terminate(ctx)

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	repo := NewPageCacheRepository(rdb, 2*time.Second)
	page := models.TransactionsResponse{
		Transactions: []models.Transaction{{
			ID:          "t1",
			Date:        models.NewDate(2024, time.January, 3),
			Description: "Coffee",
			Amount:      decimal.RequireFromString("4.5"),
			Category:    models.Category{Name: "Food & Dining", Icon: "utensils", Color: "orange"},
		}},
		HasMore: true,
	}

	t.Run("Miss", func(t *testing.T) {
		_, err := repo.GetPage(ctx, 9, 20)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Set and Get page", func(t *testing.T) {
		require.NoError(t, repo.SetPage(ctx, 0, 20, page))

		got, err := repo.GetPage(ctx, 0, 20)
		require.NoError(t, err)
		assert.True(t, got.HasMore)
		require.Len(t, got.Transactions, 1)
		assert.Equal(t, "t1", got.Transactions[0].ID)
		assert.True(t, page.Transactions[0].Amount.Equal(got.Transactions[0].Amount))

		_, err = repo.GetPage(ctx, 0, 50)
		assert.ErrorIs(t, err, ErrCacheMiss, "page size is part of the key")
	})

	t.Run("Invalidate removes every page", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.SetPage(ctx, i, 20, page))
		}
		require.NoError(t, rdb.Set(ctx, "unrelated", "keep", 0).Err())

		require.NoError(t, repo.Invalidate(ctx))

		for i := 0; i < 5; i++ {
			_, err := repo.GetPage(ctx, i, 20)
			assert.ErrorIs(t, err, ErrCacheMiss)
		}
		assert.Equal(t, "keep", rdb.Get(ctx, "unrelated").Val())
	})

	t.Run("Expiration", func(t *testing.T) {
		require.NoError(t, repo.SetPage(ctx, 1, 20, page))
		time.Sleep(2100 * time.Millisecond)

		_, err := repo.GetPage(ctx, 1, 20)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}
