package statements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "statements:cache:version"
	bumpChannel     = "statements.bump"
)

// CachedStore is a read-through redis cache in front of a Store. Keys embed a
// global version so Invalidate drops every cached document at once.
type CachedStore struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps next. A nil client disables caching.
func NewCachedStore(next Store, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *CachedStore) Version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
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

func (c *CachedStore) key(ctx context.Context, typ Type, periodKey, balanceteVersion string) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", strings.Join([]string{"statements", "doc", string(typ), periodKey, balanceteVersion}, ":"), ver), nil
}

// Get serves the document from redis, loading and caching it on a miss.
// Missing documents are never cached. Redis failures fall through to the
// underlying store.
func (c *CachedStore) Get(ctx context.Context, typ Type, periodKey, balanceteVersion string) (Document, error) {
	if c.client == nil {
		return c.next.Get(ctx, typ, periodKey, balanceteVersion)
	}
	key, err := c.key(ctx, typ, periodKey, balanceteVersion)
	if err != nil {
		return c.next.Get(ctx, typ, periodKey, balanceteVersion)
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var doc Document
		if err := json.Unmarshal(raw, &doc); err == nil {
			return doc, nil
		}
	}
	doc, err := c.next.Get(ctx, typ, periodKey, balanceteVersion)
	if err != nil {
		return Document{}, err
	}
	if encoded, err := json.Marshal(doc); err == nil {
		_ = c.client.Set(ctx, key, encoded, c.ttl).Err()
	}
	return doc, nil
}

// Upsert writes through to the store and evicts the cached copy.
func (c *CachedStore) Upsert(ctx context.Context, doc Document) error {
	if err := c.next.Upsert(ctx, doc); err != nil {
		return err
	}
	if c.client == nil {
		return nil
	}
	key, err := c.key(ctx, doc.Type, doc.PeriodKey, doc.BalanceteVersion)
	if err != nil {
		return nil
	}
	_ = c.client.Del(ctx, key).Err()
	return nil
}

// Invalidate drops every cached document by bumping the version and
// notifying other workers.
func (c *CachedStore) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other processes,
// such as balancete imports, until ctx is done.
func (c *CachedStore) ListenForInvalidation(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
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
				if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
					_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
					continue
				}
				_ = c.client.Incr(ctx, cacheVersionKey).Err()
			}
		}
	}()
	return nil
}
