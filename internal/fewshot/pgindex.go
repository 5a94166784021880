package fewshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// pgIndexTable is where PGIndex keeps the corpus. Schema introspection
// skips it so it never leaks into generation prompts.
const pgIndexTable = "fewshot_examples"

// PGIndex stores example embeddings in a pgvector table and ranks them with
// the cosine distance operator. It needs a PostgreSQL server with the
// vector extension available; the in-memory index stays the default because
// warehouses like Redshift do not ship pgvector.
type PGIndex struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGIndex creates a pgvector-backed example index on the given pool.
func NewPGIndex(pool *pgxpool.Pool, logger *slog.Logger) *PGIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGIndex{pool: pool, logger: logger}
}

// Build provisions the vector extension and the index table, then replaces
// the stored corpus with the given examples and embeddings in one
// transaction.
func (p *PGIndex) Build(ctx context.Context, examples []Example, vectors [][]float32) error {
	if len(examples) == 0 || len(examples) != len(vectors) {
		return fmt.Errorf("pgvector index: %d examples with %d vectors", len(examples), len(vectors))
	}

	dim := len(vectors[0])
	if err := p.ensureSchema(ctx, dim); err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgvector index: beginning load: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.Warn("rolling back example index load", "error", rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, "TRUNCATE "+pgIndexTable); err != nil {
		return fmt.Errorf("pgvector index: clearing table: %w", err)
	}

	for i, ex := range examples {
		if len(vectors[i]) != dim {
			return fmt.Errorf("pgvector index: example %d has dimension %d, want %d", i, len(vectors[i]), dim)
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO `+pgIndexTable+` (position, input, sql_cmd, sql_result, answer, table_info, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			i, ex.Input, ex.SQLCmd, ex.SQLResult, ex.Answer, ex.TableInfo, pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("pgvector index: inserting example %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgvector index: committing load: %w", err)
	}

	p.logger.Debug("pgvector example index loaded", "examples", len(examples), "dimensions", dim)
	return nil
}

func (p *PGIndex) ensureSchema(ctx context.Context, dim int) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector index: creating extension: %w", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		position   INTEGER PRIMARY KEY,
		input      TEXT NOT NULL,
		sql_cmd    TEXT NOT NULL,
		sql_result TEXT,
		answer     TEXT,
		table_info TEXT,
		embedding  vector(%d) NOT NULL
	)`, pgIndexTable, dim)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("pgvector index: creating table: %w", err)
	}
	return nil
}

// Nearest returns the k stored examples closest to vector by cosine
// distance, closest first, ties broken by corpus position.
func (p *PGIndex) Nearest(ctx context.Context, vector []float32, k int) ([]ScoredExample, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT input, sql_cmd, sql_result, answer, table_info,
		        1 - (embedding <=> $1) AS similarity
		 FROM `+pgIndexTable+`
		 ORDER BY embedding <=> $1, position
		 LIMIT $2`,
		pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, fmt.Errorf("pgvector index: searching: %w", err)
	}
	defer rows.Close()

	var scored []ScoredExample
	for rows.Next() {
		var sc ScoredExample
		err := rows.Scan(&sc.Example.Input, &sc.Example.SQLCmd, &sc.Example.SQLResult,
			&sc.Example.Answer, &sc.Example.TableInfo, &sc.Score)
		if err != nil {
			return nil, fmt.Errorf("pgvector index: scanning result: %w", err)
		}
		scored = append(scored, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector index: reading results: %w", err)
	}
	return scored, nil
}
