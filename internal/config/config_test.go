package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"reactor/backend/internal/config"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("DB_HOST", "test-host")
	defer os.Unsetenv("DB_HOST")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "test-host", cfg.DBHost)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "memory", cfg.IndexBackend)
	assert.Equal(t, 1600, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 8, cfg.RetrieveTopK)
	assert.Equal(t, 6000, cfg.ContextBudget)
	assert.False(t, cfg.DegradeOnEmbedError)
}

func TestLoadConfig_RetrievalKnobs(t *testing.T) {
	os.Setenv("RETRIEVE_TOP_K", "3")
	os.Setenv("RETRIEVE_MIN_SCORE", "0.7")
	os.Setenv("CONTEXT_BUDGET", "1234")
	defer os.Unsetenv("RETRIEVE_TOP_K")
	defer os.Unsetenv("RETRIEVE_MIN_SCORE")
	defer os.Unsetenv("CONTEXT_BUDGET")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 3, cfg.RetrieveTopK)
	assert.InDelta(t, 0.7, cfg.RetrieveMinScore, 1e-9)
	assert.Equal(t, 1234, cfg.ContextBudget)
}

func TestValidate_RejectsOverlapNotBelowChunkSize(t *testing.T) {
	os.Setenv("CHUNK_SIZE", "100")
	os.Setenv("CHUNK_OVERLAP", "100")
	defer os.Unsetenv("CHUNK_SIZE")
	defer os.Unsetenv("CHUNK_OVERLAP")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate_RejectsUnknownBackends(t *testing.T) {
	os.Setenv("INDEX_BACKEND", "faiss")
	defer os.Unsetenv("INDEX_BACKEND")

	_, err := config.Load()
	assert.Error(t, err)
}
