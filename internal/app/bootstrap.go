package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"reactor/backend/internal/config"
	"reactor/backend/internal/index"
	"reactor/backend/internal/worker"
)

// Dependencies holds the external resources the app needs: the document
// store database, the similarity index and an optional event producer.
type Dependencies struct {
	DB       *sql.DB
	Index    index.Index
	Producer *nsq.Producer // nil when no nsqd is configured
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1)
		time.Sleep(retryDelay)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("migration up error: %w", err)
	}

	idx, err := buildIndex(ctx, cfg, retryDelay)
	if err != nil {
		return nil, err
	}

	var producer *nsq.Producer
	if cfg.NSQDHost != "" {
		producer, err = nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		createTopics(cfg.NSQDHost)
	}

	return &Dependencies{DB: db, Index: idx, Producer: producer}, nil
}

func buildIndex(ctx context.Context, cfg *config.Config, retryDelay time.Duration) (index.Index, error) {
	if cfg.IndexBackend == "memory" {
		return index.NewMemoryIndex(cfg.EmbedDimension), nil
	}

	client, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}

	adapter := index.NewWeaviateSchemaAdapter(client)
	if err := ensureSchemaWithRetry(ctx, adapter, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		return nil, fmt.Errorf("weaviate schema error: %w", err)
	}
	return index.NewWeaviateIndex(client, cfg.EmbedDimension), nil
}

func ensureSchemaWithRetry(ctx context.Context, client index.SchemaClient, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = index.EnsureSchema(ctx, client); err == nil {
			return nil
		}
		slog.Warn("failed to ensure index schema, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}

// createTopics pre-creates the event topics over nsqd's HTTP API. NSQ creates
// topics lazily on publish, but consumers querying lookupd get 404 until then.
func createTopics(nsqdHost string) {
	host, _, err := net.SplitHostPort(nsqdHost)
	if err != nil {
		host = nsqdHost
	}

	create := func(topic string) {
		url := fmt.Sprintf("http://%s:4151/topic/create?topic=%s", host, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		// Wait for nsqd to be ready
		time.Sleep(2 * time.Second)
		create(worker.TopicIngestCompleted)
		create(worker.TopicIngestFailed)
	}()
}
