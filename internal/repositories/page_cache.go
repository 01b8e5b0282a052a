package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// ErrCacheMiss is returned when a page is not cached.
var ErrCacheMiss = errors.New("page not cached")

const pageKeyPrefix = "transactions:page:"

// PageCacheRepository caches rendered list pages in Redis
type PageCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration duration for cached pages
}

// NewPageCacheRepository creates a new repository instance with the given TTL
func NewPageCacheRepository(client *redis.Client, expiration time.Duration) *PageCacheRepository {
	return &PageCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func pageKey(page, pageSize int) string {
	return fmt.Sprintf("%s%d:%d", pageKeyPrefix, page, pageSize)
}

// GetPage returns a cached page or ErrCacheMiss.
func (r *PageCacheRepository) GetPage(ctx context.Context, page, pageSize int) (models.TransactionsResponse, error) {
	key := pageKey(page, pageSize)

	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		logger.Log.Debugw("page cache get",
			"key", key,
			"error", err,
		)
		if errors.Is(err, redis.Nil) {
			return models.TransactionsResponse{}, ErrCacheMiss
		}
		return models.TransactionsResponse{}, err
	}

	var resp models.TransactionsResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		logger.Log.Warnw("page cache entry unreadable",
			"key", key,
			"error", err,
		)
		return models.TransactionsResponse{}, err
	}

	logger.Log.Debugw("page cache hit",
		"key", key,
		"result", len(resp.Transactions),
	)
	return resp, nil
}

// SetPage caches a page with expiration
func (r *PageCacheRepository) SetPage(ctx context.Context, page, pageSize int, resp models.TransactionsResponse) error {
	key := pageKey(page, pageSize)

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	err = r.client.Set(ctx, key, data, r.exp).Err()

	logger.Log.Debugw("page cache set",
		"key", key,
		"size", len(data),
		"error", err,
	)
	return err
}

// Invalidate drops every cached page.
func (r *PageCacheRepository) Invalidate(ctx context.Context) error {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pageKeyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return err
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	logger.Log.Infow("page cache invalidated", "removed", removed)
	return nil
}
