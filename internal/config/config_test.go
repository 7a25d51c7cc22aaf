package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 1536, cfg.EmbeddingDimension)
	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, float32(0.7), cfg.SimilarityThreshold)
	assert.Equal(t, "chunks", cfg.VectorCollection)
	assert.Empty(t, cfg.RedisAddr, "cache is opt-in")
}

func TestLoadRejectsOverlapNotSmallerThanSize(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHUNK_OVERLAP")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHUNK_SIZE", "1024")
	t.Setenv("TOP_K", "10")
	t.Setenv("SIMILARITY_THRESHOLD", "0.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.ChunkSize)
	assert.Equal(t, 10, cfg.TopK)
	assert.Equal(t, float32(0.5), cfg.SimilarityThreshold)
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: "5432", DBUser: "rag",
		DBPassword: "secret", DBName: "ragdb", DBSSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=rag password=secret dbname=ragdb sslmode=disable",
		cfg.DatabaseURL())
}
