// Package app assembles the question-answering pipeline from
// configuration: tracing, the warehouse pool, Genkit with the configured
// model provider, the example selector, the generator, and the executor,
// wired together once at startup.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/fewshot"
	"github.com/sqlsage/sqlsage/internal/pipeline"
	"github.com/sqlsage/sqlsage/internal/warehouse"
)

// App is the assembled application. Every field is built once by Setup and
// read-only afterwards, so entry points can share one App across requests.
type App struct {
	Config   *config.Config
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool
	Store    *fewshot.Store
	Executor *warehouse.Executor
	Pipeline *pipeline.Pipeline

	logger      *slog.Logger
	otelCleanup func()
}

// Close releases everything Setup acquired: it flushes pending trace spans
// and closes the warehouse pool. Safe on a partially initialized App.
func (a *App) Close() error {
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	if a.Pool != nil {
		a.Pool.Close()
		if a.logger != nil {
			a.logger.Debug("warehouse pool closed")
		}
	}
	return nil
}
