package style

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache stores successful suggestion lists by fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Set(ctx context.Context, key string, styles []string, ttl time.Duration) error
}

// CachedSuggester memoizes non-fallback results of the wrapped suggester.
// Cache failures are logged and never change the result.
type CachedSuggester struct {
	next   Suggester
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedSuggester returns next unchanged when cache is nil, including a
// nil *RedisCache.
func NewCachedSuggester(next Suggester, cache Cache, ttl time.Duration, logger zerolog.Logger) Suggester {
	if rc, ok := cache.(*RedisCache); cache == nil || (ok && rc == nil) {
		return next
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedSuggester{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedSuggester) Suggest(ctx context.Context, req Request) Result {
	if req.Product == nil || len(req.Product.Data) == 0 {
		return c.next.Suggest(ctx, req)
	}
	key := Fingerprint(req)
	styles, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("style: cache read failed")
	} else if ok && len(styles) > 0 {
		return Result{Styles: styles}
	}
	res := c.next.Suggest(ctx, req)
	if res.Fallback {
		return res
	}
	if err := c.cache.Set(ctx, key, res.Styles, c.ttl); err != nil {
		c.logger.Warn().Err(err).Msg("style: cache write failed")
	}
	return res
}

// Fingerprint hashes every input that influences a suggestion.
func Fingerprint(req Request) string {
	h := sha256.New()
	write := func(b []byte) {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	if req.Product != nil {
		write(req.Product.Data)
	} else {
		write(nil)
	}
	if req.Model != nil {
		write(req.Model.Data)
	} else {
		write(nil)
	}
	write([]byte(req.ReferenceText))
	write([]byte(req.Locale))
	return "style:suggest:" + hex.EncodeToString(h.Sum(nil))
}

// RedisCache implements Cache on top of go-redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache returns nil for a nil client.
func NewRedisCache(client *redis.Client) *RedisCache {
	if client == nil {
		return nil
	}
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var styles []string
	if err := json.Unmarshal(raw, &styles); err != nil {
		return nil, false, err
	}
	return styles, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, styles []string, ttl time.Duration) error {
	raw, err := json.Marshal(styles)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, ttl).Err()
}

var _ Cache = (*RedisCache)(nil)
