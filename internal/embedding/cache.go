package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheTTL bounds staleness bookkeeping only; embeddings for identical
// text and model never change, so expiry exists to cap memory in Redis.
const cacheTTL = 24 * time.Hour

// Cache stores computed embedding vectors in Redis, keyed by model and
// text hash. All failures degrade to cache misses; the cache is a
// throughput optimization, never a source of truth.
type Cache struct {
	client *redis.Client
	model  string
}

// NewCache wraps an existing Redis client. The model name is part of the
// key so switching embedding models never serves stale vectors.
func NewCache(client *redis.Client, model string) *Cache {
	return &Cache{client: client, model: model}
}

func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.model + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text, if present.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, bool) {
	payload, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(payload, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

// Set stores a computed vector. Errors are ignored; the next lookup
// simply misses.
func (c *Cache) Set(ctx context.Context, text string, vec []float32) {
	payload, err := json.Marshal(vec)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(text), payload, cacheTTL)
}
