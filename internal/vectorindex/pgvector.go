package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PgIndex 基于 pgvector 扩展的索引
type PgIndex struct {
	pool  *pgxpool.Pool
	table string
}

func NewPgIndex(ctx context.Context, dsn, table string) (*PgIndex, error) {
	if dsn == "" {
		return nil, errors.New("vector.postgres.dsn is required for pgvector backend")
	}
	if table == "" {
		table = "rfq_chunks"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PgIndex{pool: pool, table: table}, nil
}

func (p *PgIndex) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	chunk_index INT NOT NULL,
	content TEXT NOT NULL,
	embedding vector(%d) NOT NULL
)`, p.table, dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_id_idx ON %s (document_id)`, p.table, p.table),
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init pgvector: %w", err)
		}
	}
	return nil
}

func (p *PgIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := fmt.Sprintf(`INSERT INTO %s (id, document_id, chunk_index, content, embedding)
VALUES ($1, $2, $3, $4, $5::vector)
ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`, p.table)
	for _, r := range records {
		batch.Queue(query, fmt.Sprintf("%s:%d", r.DocumentID, r.ChunkIndex), r.DocumentID, r.ChunkIndex, r.Content, ToLiteral(r.Vector))
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

func (p *PgIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		k = 3
	}
	query := fmt.Sprintf(`SELECT document_id, chunk_index, content, 1 - (embedding <=> $1::vector) AS score
FROM %s
ORDER BY embedding <=> $1::vector
LIMIT $2`, p.table)

	rows, err := p.pool.Query(ctx, query, ToLiteral(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.DocumentID, &h.ChunkIndex, &h.Content, &h.Score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return hits, nil
}

func (p *PgIndex) Delete(ctx context.Context, documentID string) error {
	if _, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, p.table), documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (p *PgIndex) Reset(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, p.table)); err != nil {
		return fmt.Errorf("truncate chunks: %w", err)
	}
	return nil
}

func (p *PgIndex) Close() error {
	p.pool.Close()
	return nil
}

// ToLiteral 转成 pgvector 的文本表示 [x,y,z]
func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
