// Package feedcache caches squad feeds in Redis and drops them when a share
// changes what the feed should show.
package feedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blacktop/squadpost/internal/logutil"
	"github.com/blacktop/squadpost/internal/squad"
	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix  = "squadpost:feed"
	scanCount  = 100
	defaultTTL = 5 * time.Minute
)

// Store is a feed cache.
type Store interface {
	squad.Invalidator
	Feed(ctx context.Context, key squad.FeedKey, squadID string) ([]squad.Post, bool, error)
	StoreFeed(ctx context.Context, key squad.FeedKey, squadID string, posts []squad.Post) error
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache is a Redis backed Store.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*Cache)(nil)

// New connects to Redis and checks the connection.
func New(ctx context.Context, opts Options) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Key builds the Redis key of a feed. Extra parts narrow the key below the
// (feed, user) prefix that Invalidate drops.
func Key(key squad.FeedKey, parts ...string) string {
	all := append([]string{keyPrefix, key.Name, key.UserID}, parts...)
	return strings.Join(all, ":")
}

// Invalidate removes every cached entry of the feed for that user.
func (c *Cache) Invalidate(ctx context.Context, key squad.FeedKey) error {
	base := Key(key)
	keys := []string{base}

	var cursor uint64
	for {
		page, next, err := c.client.Scan(ctx, cursor, escapeGlob(base)+":*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", base, err)
		}
		keys = append(keys, page...)
		if next == 0 {
			break
		}
		cursor = next
	}

	removed, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("delete %s: %w", base, err)
	}
	logutil.Debugf("feed invalidated: key=%s removed=%d", base, removed)
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

// Feed returns the cached posts of a squad feed.
func (c *Cache) Feed(ctx context.Context, key squad.FeedKey, squadID string) ([]squad.Post, bool, error) {
	data, err := c.client.Get(ctx, Key(key, squadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get feed: %w", err)
	}

	var posts []squad.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, false, fmt.Errorf("decode feed: %w", err)
	}
	return posts, true, nil
}

// StoreFeed caches the posts of a squad feed.
func (c *Cache) StoreFeed(ctx context.Context, key squad.FeedKey, squadID string, posts []squad.Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	if err := c.client.Set(ctx, Key(key, squadID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set feed: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Nop is used when no Redis server is configured: nothing is cached and
// nothing needs invalidating.
type Nop struct{}

var _ Store = Nop{}

func (Nop) Invalidate(context.Context, squad.FeedKey) error { return nil }

func (Nop) Feed(context.Context, squad.FeedKey, string) ([]squad.Post, bool, error) {
	return nil, false, nil
}

func (Nop) StoreFeed(context.Context, squad.FeedKey, string, []squad.Post) error { return nil }
