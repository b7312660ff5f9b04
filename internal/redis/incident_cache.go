package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"emergencyDashboard/internal/domain"
	"emergencyDashboard/pkg/e"

	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultIncidentsKey = "incidents:all"
	DefaultTTL          = 30 * time.Second

	generationSuffix = ":gen"
)

var errGenerationMoved = errors.New("cache generation moved")

// IncidentCache keeps the last FindAll result. Every invalidation bumps a
// generation counter, and a list read before that bump is never stored.
// A lost invalidation leaves stale data for at most the TTL.
type IncidentCache struct {
	client goredis.UniversalClient
	key    string
	genKey string
	ttl    time.Duration
}

func NewIncidentCache(r *Redis, ttl time.Duration) *IncidentCache {
	return newIncidentCache(r.Client, ttl)
}

func newIncidentCache(client goredis.UniversalClient, ttl time.Duration) *IncidentCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &IncidentCache{
		client: client,
		key:    DefaultIncidentsKey,
		genKey: DefaultIncidentsKey + generationSuffix,
		ttl:    ttl,
	}
}

// GetAll reports ok=false on a cache miss. The returned generation must be
// handed back to SetAll together with the list loaded after this call.
func (c *IncidentCache) GetAll(ctx context.Context) ([]domain.Record, int64, bool, error) {
	const op = "redis.IncidentCache.GetAll"

	vals, err := c.client.MGet(ctx, c.key, c.genKey).Result()
	if err != nil {
		return nil, 0, false, e.Dependency(op, err)
	}

	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, 0, false, e.Dependency(op, err)
	}

	data, ok := vals[0].(string)
	if !ok {
		return nil, gen, false, nil
	}

	var incidents []domain.Record
	if err := json.Unmarshal([]byte(data), &incidents); err != nil {
		// unreadable entry counts as a miss; the caller overwrites it
		return nil, gen, false, nil
	}

	return incidents, gen, true, nil
}

// SetAll stores incidents only while the generation still equals gen. A list
// loaded before a concurrent Invalidate is dropped silently.
func (c *IncidentCache) SetAll(ctx context.Context, gen int64, incidents []domain.Record) error {
	const op = "redis.IncidentCache.SetAll"

	if incidents == nil {
		incidents = []domain.Record{}
	}
	b, err := json.Marshal(incidents)
	if err != nil {
		return e.Wrap(op, err)
	}

	err = c.client.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, c.genKey).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		var cur int64
		if err == nil {
			if cur, err = strconv.ParseInt(raw, 10, 64); err != nil {
				return err
			}
		}
		if cur != gen {
			return errGenerationMoved
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, c.key, b, c.ttl)
			return nil
		})
		return err
	}, c.genKey)

	switch {
	case err == nil, errors.Is(err, errGenerationMoved), errors.Is(err, goredis.TxFailedErr):
		return nil
	default:
		return e.Dependency(op, err)
	}
}

// Invalidate drops the cached list and bumps the generation in one transaction.
func (c *IncidentCache) Invalidate(ctx context.Context) error {
	const op = "redis.IncidentCache.Invalidate"

	_, err := c.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Incr(ctx, c.genKey)
		p.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return e.Dependency(op, err)
	}
	return nil
}

func parseGeneration(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, errors.New("unexpected generation type")
	}
	return strconv.ParseInt(s, 10, 64)
}
