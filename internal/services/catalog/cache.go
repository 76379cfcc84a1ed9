package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"shop-system/internal/database/models"
)

const (
	CATALOG_PRODUCT_CACHE_PREFIX = "catalog:product:"
	CATALOG_SEARCH_CACHE_KEY     = "catalog:search"
	CACHE_TTL_SHORT              = 5 * time.Minute
	CACHE_TTL_MEDIUM             = 30 * time.Minute
)

func productCacheKey(id int64) string {
	return fmt.Sprintf("%s%d", CATALOG_PRODUCT_CACHE_PREFIX, id)
}

// InvalidateProducts drops the search cache and the given products'
// entries. Stock changes make any cached search result stale.
func (s *Service) InvalidateProducts(ctx context.Context, productIDs ...int64) {
	if s.redis == nil {
		return
	}

	keys := []string{CATALOG_SEARCH_CACHE_KEY}
	for _, id := range productIDs {
		keys = append(keys, productCacheKey(id))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to invalidate catalog cache: %v", err)
	}
}

func (s *Service) cachedProduct(ctx context.Context, id int64) (*models.Product, bool) {
	if s.redis == nil {
		return nil, false
	}

	val, err := s.redis.Get(ctx, productCacheKey(id)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error on GET: %v. Falling back to DB.", err)
		}
		return nil, false
	}

	var product models.Product
	if err := json.Unmarshal([]byte(val), &product); err != nil {
		return nil, false
	}
	return &product, true
}

func (s *Service) cacheProduct(ctx context.Context, product *models.Product) {
	if s.redis == nil {
		return
	}

	jsonData, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, productCacheKey(product.ID), jsonData, CACHE_TTL_MEDIUM).Err(); err != nil {
		log.Printf("Failed to set cache for product %d: %v", product.ID, err)
	}
}

// Search results live in one hash so a single DEL clears them all.
func (s *Service) cachedSearch(ctx context.Context, term string) ([]ProductHit, bool) {
	if s.redis == nil {
		return nil, false
	}

	val, err := s.redis.HGet(ctx, CATALOG_SEARCH_CACHE_KEY, term).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error on HGET: %v. Falling back to DB.", err)
		}
		return nil, false
	}

	var hits []ProductHit
	if err := json.Unmarshal([]byte(val), &hits); err != nil {
		return nil, false
	}
	return hits, true
}

func (s *Service) cacheSearch(ctx context.Context, term string, hits []ProductHit) {
	if s.redis == nil {
		return
	}

	jsonData, err := json.Marshal(hits)
	if err != nil {
		return
	}
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, CATALOG_SEARCH_CACHE_KEY, term, jsonData)
	pipe.Expire(ctx, CATALOG_SEARCH_CACHE_KEY, CACHE_TTL_SHORT)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Failed to cache search %q: %v", term, err)
	}
}
