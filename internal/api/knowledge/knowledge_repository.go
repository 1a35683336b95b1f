package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-hk-tourism-ai/app/observability/metrics"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*RepositoryImpl)(nil)

// Repository persists document chunks with their embeddings in pgvector.
type Repository interface {
	Count(ctx context.Context) (int, error)
	InsertChunk(ctx context.Context, title, content string, chunkIndex int, metadata map[string]any, embedding []float32) (uuid.UUID, error)
	SearchSimilar(ctx context.Context, embedding []float32, k int) ([]types.Document, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     DBTX
}

func NewRepository(db DBTX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{db: db, logger: logger}
}

func recordQuery(ctx context.Context, op string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("operation", op), attribute.String("table", "knowledge_documents"))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func (r *RepositoryImpl) Count(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("KnowledgeRepository").Start(ctx, "Count")
	defer span.End()

	start := time.Now()
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_documents`).Scan(&n)
	recordQuery(ctx, "count", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Count failed")
		return 0, fmt.Errorf("failed to count knowledge documents: %w", err)
	}
	return n, nil
}

func (r *RepositoryImpl) InsertChunk(ctx context.Context, title, content string, chunkIndex int, metadata map[string]any, embedding []float32) (uuid.UUID, error) {
	ctx, span := otel.Tracer("KnowledgeRepository").Start(ctx, "InsertChunk", trace.WithAttributes(
		attribute.String("document.title", title),
		attribute.Int("chunk.index", chunkIndex),
		attribute.Int("embedding.dimension", len(embedding)),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "InsertChunk"))

	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		span.RecordError(err)
		return uuid.Nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := `
		INSERT INTO knowledge_documents (title, content, chunk_index, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5::vector)
		RETURNING id`

	start := time.Now()
	var id uuid.UUID
	err = r.db.QueryRow(ctx, query, title, content, chunkIndex, metaJSON, pgvector.NewVector(embedding).String()).Scan(&id)
	recordQuery(ctx, "insert", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert knowledge chunk", slog.Any("error", err), slog.String("title", title))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return uuid.Nil, fmt.Errorf("failed to insert knowledge chunk: %w", err)
	}

	span.SetAttributes(attribute.String("document.id", id.String()))
	return id, nil
}

func (r *RepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, k int) ([]types.Document, error) {
	ctx, span := otel.Tracer("KnowledgeRepository").Start(ctx, "SearchSimilar", trace.WithAttributes(
		attribute.Int("embedding.dimension", len(embedding)),
		attribute.Int("limit", k),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "SearchSimilar"))

	query := `
		SELECT id, title, content, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM knowledge_documents
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector
		LIMIT $2`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, pgvector.NewVector(embedding).String(), k)
	if err != nil {
		recordQuery(ctx, "search", start, err)
		l.ErrorContext(ctx, "Failed to query similar documents", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search knowledge documents: %w", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var (
			doc      types.Document
			metaJSON []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &metaJSON, &doc.Score); err != nil {
			recordQuery(ctx, "search", start, err)
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan knowledge document: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &doc.Metadata); err != nil {
				l.WarnContext(ctx, "Ignoring malformed metadata", slog.String("id", doc.ID.String()), slog.Any("error", err))
			}
		}
		docs = append(docs, doc)
	}
	err = rows.Err()
	recordQuery(ctx, "search", start, err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed iterating knowledge documents: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(docs)))
	return docs, nil
}
