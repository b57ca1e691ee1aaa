package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "payscore:analytics:version"
	bumpChannel     = "analytics.bump"
)

// Cache wraps Redis based read-through caching with a global version token.
// Bumping the version invalidates every report key at once; values are
// always recomputed, never incrementally updated, so last-writer-wins on
// overlapping keys is acceptable.
type Cache struct {
	client   *redis.Client
	onLookup func(hit bool)
}

// NewCache instantiates the cache helper. A nil client degrades to
// pass-through loading, which keeps the service usable without Redis.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// SetLookupObserver registers a callback invoked after each cache lookup.
func (c *Cache) SetLookupObserver(fn func(hit bool)) {
	if c != nil {
		c.onLookup = fn
	}
}

func (c *Cache) observe(hit bool) {
	if c != nil && c.onLookup != nil {
		c.onLookup(hit)
	}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version appended.
func (c *Cache) BuildKey(ctx context.Context, base string) (string, error) {
	if c == nil || c.client == nil {
		return base, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return base + ":" + strconv.FormatInt(ver, 10), nil
}

// FetchJSON loads a cached value or populates it using the loader, storing
// the result under the supplied TTL.
func (c *Cache) FetchJSON(ctx context.Context, key string, ttl time.Duration, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("analytics: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		c.observe(true)
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	c.observe(false)
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates all cached reports by incrementing the global version and
// publishing the change for other processes.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// PurgePattern deletes cached entries matching the supplied glob pattern and
// returns the number of keys removed.
func (c *Cache) PurgePattern(ctx context.Context, pattern string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	var deleted int64
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	keys := make([]string, 0, 64)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 64 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if len(keys) > 0 {
		n, err := c.client.Del(ctx, keys...).Result()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

// ListenForInvalidation subscribes to version bump notifications published by
// sibling processes (the worker warms caches the API then serves).
func (c *Cache) ListenForInvalidation(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload != "" {
					if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
						_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
						continue
					}
				}
				_ = c.client.Incr(ctx, cacheVersionKey).Err()
			}
		}
	}()
	return nil
}

func keyMonthly(from, to time.Time, zoneID *int64) string {
	return strings.Join([]string{"payscore", "monthly", from.Format("2006-01-02"), to.Format("2006-01-02"), zoneToken(zoneID)}, ":")
}

func keyAnnual(year int, zoneID *int64) string {
	return strings.Join([]string{"payscore", "annual", strconv.Itoa(year), zoneToken(zoneID)}, ":")
}

func keyHistory(customerID int64) string {
	return strings.Join([]string{"payscore", "history", strconv.FormatInt(customerID, 10)}, ":")
}

func keyRanking(q RankingQuery) string {
	unlimited := "0"
	if q.Unlimited {
		unlimited = "1"
	}
	return strings.Join([]string{
		"payscore", "ranking",
		strconv.Itoa(q.Page), strconv.Itoa(q.PerPage), q.Order,
		strings.ToLower(q.Search), strings.ToUpper(q.RiskTier), unlimited,
		dateToken(q.From), dateToken(q.To),
	}, ":")
}

func keyTopCustomers(q TopCustomersQuery) string {
	return strings.Join([]string{
		"payscore", "top",
		q.From.Format("2006-01-02"), q.To.Format("2006-01-02"),
		strconv.Itoa(q.Limit), q.Order,
	}, ":")
}

func keyTierSummary() string {
	return "payscore:tier_summary"
}

func zoneToken(zoneID *int64) string {
	if zoneID == nil {
		return "-"
	}
	return strconv.FormatInt(*zoneID, 10)
}

func dateToken(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
