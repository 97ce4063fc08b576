package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores vectors by key. Misses and backend errors both report ok=false.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

// CacheKey derives the cache key for a model and input text.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

// EncodeVector serializes v as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("vector payload length is not a multiple of 4")
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

type lruCache struct {
	cache *lru.Cache[string, []float32]
}

// NewLRUCache creates an in-process cache holding up to size vectors.
func NewLRUCache(size int) (Cache, error) {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &lruCache{cache: c}, nil
}

func (c *lruCache) Get(_ context.Context, key string) ([]float32, bool) {
	return c.cache.Get(key)
}

func (c *lruCache) Set(_ context.Context, key string, vec []float32) {
	c.cache.Add(key, vec)
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a cache shared across processes through Redis.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) Cache {
	return &redisCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("embedding-cache"),
	}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Embedding cache read failed", zap.Error(err))
		}
		return nil, false
	}
	vec, err := DecodeVector(b)
	if err != nil {
		c.logger.Warn("Discarding corrupt cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *redisCache) Set(ctx context.Context, key string, vec []float32) {
	if err := c.client.Set(ctx, key, EncodeVector(vec), c.ttl).Err(); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.Error(err))
	}
}
