package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

// PgVectorStore implements VectorStore on top of Postgres + pgvector,
// adapted from the teacher's cosine-distance adapter onto this module's
// article_embeddings table (spec §6.3 metadata projection).
type PgVectorStore struct {
	db       *sql.DB
	embedder Embedder
}

func NewPgVectorStore(db *sql.DB, embedder Embedder) *PgVectorStore {
	return &PgVectorStore{db: db, embedder: embedder}
}

// Upsert embeds the best-available text and writes (id=uri, embedding,
// metadata). Transient backend errors are logged and swallowed by
// callers (internal/ingest), never by this method — it still reports the
// error so the caller can decide whether to treat it as fatal.
func (s *PgVectorStore) Upsert(ctx context.Context, article *core.Article, rawText string) error {
	text := bestText(article, rawText)
	if text == "" {
		return core.NewError("vectorstore.Upsert", core.ErrKindNoContent, nil)
	}

	vec, err := s.embedder.Embed(ctx, core.TruncateWords(text, 8000))
	if err != nil {
		return core.NewError("vectorstore.Upsert", core.ErrKindVectorErr, err)
	}

	md := buildMetadata(article)
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return core.NewError("vectorstore.Upsert", core.ErrKindInternal, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO article_embeddings (uri, embedding, publication_date_ts, metadata)
		VALUES ($1, $2::vector, $3, $4)
		ON CONFLICT (uri) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			publication_date_ts = EXCLUDED.publication_date_ts,
			metadata = EXCLUDED.metadata`,
		article.URI, formatVector(vec), md["publication_date_ts"], mdJSON)
	if err != nil {
		return core.NewError("vectorstore.Upsert", core.ErrKindVectorErr, err)
	}
	return nil
}

func (s *PgVectorStore) Search(ctx context.Context, query string, q SearchQuery) ([]SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, core.NewError("vectorstore.Search", core.ErrKindVectorErr, err)
	}
	return s.searchByVector(ctx, vec, q)
}

func (s *PgVectorStore) Similar(ctx context.Context, uri string, topK int) ([]SearchResult, error) {
	var vecStr string
	err := s.db.QueryRowContext(ctx, `SELECT embedding::text FROM article_embeddings WHERE uri=$1`, uri).Scan(&vecStr)
	if err == sql.ErrNoRows {
		return []SearchResult{}, nil
	}
	if err != nil {
		return nil, core.NewError("vectorstore.Similar", core.ErrKindVectorErr, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT uri, metadata, embedding <=> $1::vector AS score
		FROM article_embeddings
		WHERE uri != $2
		ORDER BY score ASC
		LIMIT $3`, vecStr, uri, topK)
	if err != nil {
		return nil, core.NewError("vectorstore.Similar", core.ErrKindVectorErr, err)
	}
	return scanResults(rows)
}

func (s *PgVectorStore) searchByVector(ctx context.Context, vec []float64, q SearchQuery) ([]SearchResult, error) {
	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}

	// An absent/empty filter MUST NOT be passed to the backend as an
	// empty filter object (spec §4.1) -- we simply omit the WHERE clause.
	where := ""
	args := []any{formatVector(vec)}
	if len(q.Filter) > 0 {
		var clauses []string
		for k, v := range q.Filter {
			args = append(args, fmt.Sprintf("%v", v))
			clauses = append(clauses, fmt.Sprintf("metadata->>'%s' = $%d", k, len(args)))
		}
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, topK)

	query := fmt.Sprintf(`
		SELECT uri, metadata, embedding <=> $1::vector AS score
		FROM article_embeddings
		%s
		ORDER BY score ASC
		LIMIT $%d`, where, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewError("vectorstore.Search", core.ErrKindVectorErr, err)
	}
	return scanResults(rows)
}

func (s *PgVectorStore) GetByMetadata(ctx context.Context, filter map[string]any, limit int) ([]SearchResult, error) {
	where := ""
	args := []any{}
	if len(filter) > 0 {
		var clauses []string
		for k, v := range filter {
			args = append(args, fmt.Sprintf("%v", v))
			clauses = append(clauses, fmt.Sprintf("metadata->>'%s' = $%d", k, len(args)))
		}
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT uri, metadata, 0 FROM article_embeddings %s LIMIT $%d`, where, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewError("vectorstore.GetByMetadata", core.ErrKindVectorErr, err)
	}
	return scanResults(rows)
}

func (s *PgVectorStore) Delete(ctx context.Context, uri string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM article_embeddings WHERE uri=$1`, uri)
	if err != nil {
		return core.NewError("vectorstore.Delete", core.ErrKindVectorErr, err)
	}
	return nil
}

func (s *PgVectorStore) Stats(ctx context.Context) (Stats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM article_embeddings`).Scan(&count); err != nil {
		return Stats{}, core.NewError("vectorstore.Stats", core.ErrKindVectorErr, err)
	}
	return Stats{TotalVectors: count, Dimensions: s.embedder.Dimensions()}, nil
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var uri string
		var mdJSON []byte
		var score float64
		if err := rows.Scan(&uri, &mdJSON, &score); err != nil {
			return nil, core.NewError("vectorstore.scan", core.ErrKindVectorErr, err)
		}
		var md map[string]any
		if err := json.Unmarshal(mdJSON, &md); err != nil {
			logger.Warn("vectorstore: failed to decode metadata", "uri", uri, "error", err.Error())
			md = map[string]any{}
		}
		out = append(out, SearchResult{ID: uri, Score: score, Metadata: md})
	}
	if out == nil {
		out = []SearchResult{}
	}
	return out, rows.Err()
}

// formatVector renders a []float64 as pgvector's "[0.1,0.2,...]" literal.
func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
