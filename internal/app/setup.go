package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/sqlsage/sqlsage/db"
	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/fewshot"
	"github.com/sqlsage/sqlsage/internal/llm"
	"github.com/sqlsage/sqlsage/internal/observability"
	"github.com/sqlsage/sqlsage/internal/pipeline"
	"github.com/sqlsage/sqlsage/internal/warehouse"
)

const (
	pingTimeout       = 5 * time.Second
	schemaTimeout     = 10 * time.Second
	traceFlushTimeout = 5 * time.Second
)

// Setup builds the application from configuration. On failure it releases
// whatever it had already acquired; on success the caller owns Close.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first: Genkit's TracerProvider needs the exporter registered
	// before model actions start recording spans.
	a.otelCleanup = provideTracing(ctx, cfg, logger)

	pool, executor, err := SetupWarehouse(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.Executor = executor

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Store = fewshot.Load(cfg.Fewshot.ExamplesPath, logger)

	selector, err := provideSelector(ctx, cfg, a.Embedder, a.Store, pool, logger)
	if err != nil {
		return nil, fmt.Errorf("building example selector: %w", err)
	}

	generator := llm.New(g, cfg.FullModelName(), llm.Config{
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
		Temperature:     cfg.Generation.Temperature,
		TopP:            cfg.Generation.TopP,
	}, logger)

	// The syntax pre-flight reuses the executor's pool; disabling it in
	// config leaves the pipeline's checker nil.
	var checker pipeline.SyntaxChecker
	if cfg.Warehouse.Preflight {
		checker = a.Executor
	}

	p, err := pipeline.New(pipeline.Deps{
		Selector:  selector,
		Generator: generator,
		Executor:  a.Executor,
		Checker:   checker,
	}, pipeline.Config{
		TableInfo: provideTableInfo(ctx, a.Executor, a.Store, logger),
		TopK:      cfg.Fewshot.TopK,
		Timeout:   cfg.RequestTimeout(),
	}, logger)
	if err != nil {
		return nil, err
	}
	a.Pipeline = p

	return a, nil
}

// SetupWarehouse opens only the warehouse half of the application: it runs
// migrations, then returns a connected pool and an executor on it. Commands
// that need the database but no model provider (load, ping) use this
// directly; Setup builds on it. The caller owns pool.Close.
func SetupWarehouse(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, *warehouse.Executor, error) {
	if cfg == nil {
		return nil, nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	executor := warehouse.New(pool, warehouse.Config{
		MaxRows:      cfg.Warehouse.MaxRows,
		QueryTimeout: cfg.QueryTimeout(),
	}, logger)

	return pool, executor, nil
}

// provideTracing wires the OTLP exporter and returns the cleanup that
// flushes spans on shutdown. Tracing problems never fail Setup.
func provideTracing(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Service:     cfg.Tracing.Service,
		Environment: cfg.Tracing.Environment,
	}, logger)
	if err != nil {
		logger.Warn("setting up tracing", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations, then opens and pings the warehouse pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.URL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging warehouse: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured model provider.
// Gemini models auto-register; Ollama requires explicit model and embedder
// registration.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideSelector embeds the corpus and builds the similarity index: in
// memory by default, in pgvector when configured.
func provideSelector(ctx context.Context, cfg *config.Config, embedder ai.Embedder, store *fewshot.Store, pool *pgxpool.Pool, logger *slog.Logger) (*fewshot.Selector, error) {
	opts := []fewshot.SelectorOption{fewshot.WithLogger(logger)}

	if isGoogleProvider(cfg.Provider) {
		// Gemini embedders output 3072 dimensions unless truncated; both
		// index backends are sized for fewshot.VectorDimension.
		dim := int32(fewshot.VectorDimension)
		opts = append(opts, fewshot.WithEmbedOptions(&genai.EmbedContentConfig{
			OutputDimensionality: &dim,
		}))
	}

	if cfg.Fewshot.Index == config.IndexPGVector {
		opts = append(opts, fewshot.WithIndex(fewshot.NewPGIndex(pool, logger)))
	}

	return fewshot.NewSelector(ctx, embedder, store, opts...)
}

func isGoogleProvider(provider string) bool {
	return provider == "" || provider == config.ProviderGemini || provider == config.ProviderGoogleAI
}

// schemaSource is the slice of the executor Setup needs to describe the
// warehouse.
type schemaSource interface {
	Schema(ctx context.Context) (string, error)
}

// provideTableInfo reads the schema text shown to the model in every
// prompt. The warehouse is authoritative; when it cannot be described (no
// tables yet, restricted grants) the corpus examples' schema keeps the
// pipeline usable.
func provideTableInfo(ctx context.Context, src schemaSource, store *fewshot.Store, logger *slog.Logger) string {
	schemaCtx, cancel := context.WithTimeout(ctx, schemaTimeout)
	defer cancel()

	info, err := src.Schema(schemaCtx)
	if err == nil && strings.TrimSpace(info) != "" {
		return info
	}
	if err != nil {
		logger.Warn("describing warehouse schema, using corpus schema", "error", err)
	} else {
		logger.Warn("warehouse has no describable tables, using corpus schema")
	}

	for _, ex := range store.Examples() {
		if strings.TrimSpace(ex.TableInfo) != "" {
			return ex.TableInfo
		}
	}
	return ""
}
