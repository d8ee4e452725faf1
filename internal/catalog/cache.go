package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
)

// Cache holds full-catalog snapshots addressed by an upload version.
type Cache interface {
	Version(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
	Load(ctx context.Context, version int64) ([]models.CatalogRow, bool, error)
	Store(ctx context.Context, version int64, rows []models.CatalogRow) error
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	CatalogVersionKey() string
	CatalogSnapshotKey(version int64) string
}

// RedisCache stores snapshots as JSON. Old snapshots are never deleted; they
// expire through ttl once a newer version supersedes them.
type RedisCache struct {
	store cacheStore
	ttl   time.Duration
}

func NewRedisCache(store cacheStore, ttl time.Duration) *RedisCache {
	return &RedisCache{store: store, ttl: ttl}
}

func (c *RedisCache) Version(ctx context.Context) (int64, error) {
	raw, err := c.store.Get(ctx, c.store.CatalogVersionKey())
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var version int64
	if err := json.Unmarshal([]byte(raw), &version); err != nil {
		return 0, err
	}
	return version, nil
}

func (c *RedisCache) Bump(ctx context.Context) (int64, error) {
	return c.store.Incr(ctx, c.store.CatalogVersionKey())
}

func (c *RedisCache) Load(ctx context.Context, version int64) ([]models.CatalogRow, bool, error) {
	raw, err := c.store.Get(ctx, c.store.CatalogSnapshotKey(version))
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rows []models.CatalogRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (c *RedisCache) Store(ctx context.Context, version int64, rows []models.CatalogRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.store.CatalogSnapshotKey(version), string(payload), c.ttl)
}
