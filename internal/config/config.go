package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"reactor"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"reactor"`

	// Similarity index backend: "memory" (exact scan, default) or "weaviate".
	IndexBackend   string `envconfig:"INDEX_BACKEND" default:"memory"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	// Embedder backend: "gemini" or "openai" (any OpenAI-compatible endpoint,
	// including Ollama's /v1 API).
	EmbedderBackend string `envconfig:"EMBEDDER_BACKEND" default:"gemini"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string `envconfig:"GEMINI_EMBED_MODEL" default:"gemini-embedding-001"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel     string `envconfig:"OPENAI_EMBED_MODEL" default:"nomic-embed-text"`

	// Expected embedding dimensionality. Vectors of any other length are
	// rejected before they reach the index.
	EmbedDimension int `envconfig:"EMBED_DIMENSION" default:"768"`

	// LLM runtime (Ollama or any OpenAI-compatible server). Optional: when
	// LLMBaseURL is empty the chat endpoint returns the prompt payload without
	// invoking a model.
	LLMBaseURL string `envconfig:"LLM_BASE_URL"`
	LLMAPIKey  string `envconfig:"LLM_API_KEY" default:"ollama"`
	LLMModel   string `envconfig:"LLM_MODEL" default:"llama3.1"`

	NSQDHost   string `envconfig:"NSQD_HOST"`
	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`

	// Retrieval policy. Tunable; defaults are starting points, not contracts.
	ChunkSize           int     `envconfig:"CHUNK_SIZE" default:"1600"`
	ChunkOverlap        int     `envconfig:"CHUNK_OVERLAP" default:"200"`
	RetrieveTopK        int     `envconfig:"RETRIEVE_TOP_K" default:"8"`
	RetrieveMinScore    float64 `envconfig:"RETRIEVE_MIN_SCORE" default:"0.25"`
	ContextBudget       int     `envconfig:"CONTEXT_BUDGET" default:"6000"`
	EmbedTimeoutSeconds int     `envconfig:"EMBED_TIMEOUT_SECONDS" default:"30"`
	EmbedConcurrency    int     `envconfig:"EMBED_CONCURRENCY" default:"4"`
	EmbedBatchSize      int     `envconfig:"EMBED_BATCH_SIZE" default:"16"`

	// When true, an embedder outage during a chat query degrades to the
	// no-context prompt instead of failing the request.
	DegradeOnEmbedError bool `envconfig:"CHAT_DEGRADE_ON_EMBED_ERROR" default:"false"`

	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	MigrationPath   string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell; a missing .env is not an error.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.EmbedDimension <= 0 {
		return fmt.Errorf("EMBED_DIMENSION must be positive, got %d", c.EmbedDimension)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must satisfy 0 <= overlap < CHUNK_SIZE, got %d", c.ChunkOverlap)
	}
	if c.RetrieveTopK <= 0 {
		return fmt.Errorf("RETRIEVE_TOP_K must be positive, got %d", c.RetrieveTopK)
	}
	if c.ContextBudget <= 0 {
		return fmt.Errorf("CONTEXT_BUDGET must be positive, got %d", c.ContextBudget)
	}
	if c.IndexBackend != "memory" && c.IndexBackend != "weaviate" {
		return fmt.Errorf("unknown INDEX_BACKEND %q", c.IndexBackend)
	}
	if c.EmbedderBackend != "gemini" && c.EmbedderBackend != "openai" {
		return fmt.Errorf("unknown EMBEDDER_BACKEND %q", c.EmbedderBackend)
	}
	return nil
}
