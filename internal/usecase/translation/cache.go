package translation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eum-live/caption-pipeline/internal/infrastructure/cache"
	"github.com/eum-live/caption-pipeline/pkg/retry"
)

// Provider is the external translation service behind the executor. Retries
// and backoff for the provider live here, never in the orchestrator.
type Provider interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
	TranslateWithContext(ctx context.Context, text, source, target, prevText, prevTranslation string) (string, error)
}

// CachedTranslator memoizes provider calls within a bounded TTL so a retried
// delivery of the same utterance never pays the provider cost twice. Redis
// is the shared cache layer when available; the in-memory store covers a
// Redis outage.
type CachedTranslator struct {
	provider Provider
	redis    *redis.Client // optional
	memory   *cache.MemoryStore
	ttl      time.Duration

	retryInitial    time.Duration
	retryMaxElapsed time.Duration

	logger *zap.Logger
}

// NewCachedTranslator creates the caching executor over a provider
func NewCachedTranslator(provider Provider, redisClient *redis.Client, memory *cache.MemoryStore, ttl, retryInitial, retryMaxElapsed time.Duration, logger *zap.Logger) *CachedTranslator {
	return &CachedTranslator{
		provider:        provider,
		redis:           redisClient,
		memory:          memory,
		ttl:             ttl,
		retryInitial:    retryInitial,
		retryMaxElapsed: retryMaxElapsed,
		logger:          logger,
	}
}

// TranslateWithCache translates a span, memoized on (text, source, target)
func (c *CachedTranslator) TranslateWithCache(ctx context.Context, text, source, target string) (string, error) {
	key := translationKey(text, source, target, "")
	if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}

	result, err := c.callProvider(ctx, func(ctx context.Context) (string, error) {
		return c.provider.Translate(ctx, text, source, target)
	})
	if err != nil {
		return "", err
	}

	c.store(ctx, key, result)
	return result, nil
}

// TranslateWithContext translates a span with the speaker's previous
// utterance and its translation as continuity hints. The cache key includes
// the context so a direct and a context-aware result never alias.
func (c *CachedTranslator) TranslateWithContext(ctx context.Context, text, source, target, prevText, prevTranslation string) (string, error) {
	key := translationKey(text, source, target, prevText)
	if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}

	result, err := c.callProvider(ctx, func(ctx context.Context) (string, error) {
		return c.provider.TranslateWithContext(ctx, text, source, target, prevText, prevTranslation)
	})
	if err != nil {
		return "", err
	}

	c.store(ctx, key, result)
	return result, nil
}

// callProvider runs the provider call with exponential backoff
func (c *CachedTranslator) callProvider(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	var result string
	operation := func() error {
		var err error
		result, err = call(ctx)
		if err != nil && retry.Permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.MaxElapsedTime = c.retryMaxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return result, nil
}

func (c *CachedTranslator) lookup(ctx context.Context, key string) (string, bool) {
	if c.redis != nil {
		val, err := c.redis.Get(ctx, key).Result()
		if err == nil {
			return val, true
		}
		if err != redis.Nil && c.logger != nil {
			c.logger.Debug("translation cache read failed, falling back to memory", zap.Error(err))
		}
	}
	if c.memory != nil {
		return c.memory.Get(key)
	}
	return "", false
}

func (c *CachedTranslator) store(ctx context.Context, key, value string) {
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, value, c.ttl).Err(); err != nil && c.logger != nil {
			c.logger.Debug("translation cache write failed", zap.Error(err))
		}
	}
	if c.memory != nil {
		c.memory.Set(key, value, c.ttl)
	}
}

func translationKey(text, source, target, prevText string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + prevText))
	return fmt.Sprintf("translation:%s:%s:%s", source, target, hex.EncodeToString(sum[:]))
}
