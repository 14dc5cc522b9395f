package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

// 商品一覧1ページ分
type productPage struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
}

// 商品一覧のキャッシュ（TTLで自然に消えるだけ）
type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProductCache(client *redis.Client, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{client: client, ttl: ttl}
}

// 無ければok=false
func (c *RedisProductCache) Get(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, bool, error) {
	data, err := c.client.Get(ctx, productListKey(q)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, errors.Wrap(err, "redis get")
	}

	var page productPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, 0, false, errors.Wrap(err, "unmarshal product page")
	}
	return page.Items, page.Total, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, q repo.ProductListQuery, items []model.Product, total int64) error {
	data, err := json.Marshal(productPage{Items: items, Total: total})
	if err != nil {
		return errors.Wrap(err, "marshal product page")
	}
	if err := c.client.Set(ctx, productListKey(q), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func productListKey(q repo.ProductListQuery) string {
	partition := string(q.Partition)
	if partition == "" {
		partition = "all"
	}
	return fmt.Sprintf("products:%s:%d:%d", partition, q.Page, q.Limit)
}

// REDIS_ADDR未設定のとき用。常にミス。
type NopProductCache struct{}

func (NopProductCache) Get(context.Context, repo.ProductListQuery) ([]model.Product, int64, bool, error) {
	return nil, 0, false, nil
}

func (NopProductCache) Set(context.Context, repo.ProductListQuery, []model.Product, int64) error {
	return nil
}
