package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, doc *Document, chunks []Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID string
	var existingVersion int
	var existingSeq int64
	query := `SELECT id, version, seq FROM documents WHERE source = $1 AND deleted_at IS NULL`
	err = tx.QueryRowContext(ctx, query, doc.Source).Scan(&existingID, &existingVersion, &existingSeq)

	switch {
	case err == nil:
		// Re-ingestion: bump version in place, replace the chunk set.
		doc.ID = existingID
		doc.Version = existingVersion + 1
		doc.Seq = existingSeq

		update := `UPDATE documents SET title = $1, content = $2, content_hash = $3, version = $4, updated_at = NOW() WHERE id = $5`
		if _, err := tx.ExecContext(ctx, update, doc.Title, doc.Text, doc.ContentHash, doc.Version, doc.ID); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, doc.ID); err != nil {
			return fmt.Errorf("delete old chunks: %w", err)
		}

	case errors.Is(err, sql.ErrNoRows):
		doc.Version = 1
		insert := `INSERT INTO documents (source, title, content, content_hash, version) VALUES ($1, $2, $3, $4, $5) RETURNING id, seq`
		if err := tx.QueryRowContext(ctx, insert, doc.Source, doc.Title, doc.Text, doc.ContentHash, doc.Version).Scan(&doc.ID, &doc.Seq); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}

	default:
		return fmt.Errorf("lookup by source: %w", err)
	}

	insertChunk := `INSERT INTO chunks (id, document_id, ordinal, start_off, end_off, content) VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		c := chunks[i]
		if _, err := tx.ExecContext(ctx, insertChunk, c.ID, c.DocumentID, c.Ordinal, c.Start, c.End, c.Text); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Ordinal, err)
		}
	}

	return tx.Commit()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	d := &Document{}
	query := `SELECT id, source, title, content, content_hash, version, seq, created_at, updated_at FROM documents WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Source, &d.Title, &d.Text, &d.ContentHash, &d.Version, &d.Seq, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepo) GetBySource(ctx context.Context, source string) (*Document, error) {
	d := &Document{}
	query := `SELECT id, source, title, content, content_hash, version, seq, created_at, updated_at FROM documents WHERE source = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, source).Scan(&d.ID, &d.Source, &d.Title, &d.Text, &d.ContentHash, &d.Version, &d.Seq, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepo) GetChunks(ctx context.Context, docID string) ([]Chunk, error) {
	query := `SELECT c.id, c.document_id, c.ordinal, c.start_off, c.end_off, c.content
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.document_id = $1 AND d.deleted_at IS NULL
		ORDER BY c.ordinal`
	rows, err := r.db.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Start, &c.End, &c.Text); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT id, source, title, version, seq, created_at, updated_at FROM documents WHERE deleted_at IS NULL ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Source, &d.Title, &d.Version, &d.Seq, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `UPDATE documents SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
