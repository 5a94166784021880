// Package pipeline sequences the answer path: select similar examples,
// build the prompt, generate SQL, extract and validate it, execute it, and
// format the result.
//
// The pipeline's contract is failure containment: Answer never returns an
// error and never panics. Whatever stage fails, the caller gets back a
// displayable Answer whose text describes the failure and whose SQL field
// carries either the offending statement or an error placeholder. Nothing
// is retried.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sqlsage/sqlsage/internal/fewshot"
	"github.com/sqlsage/sqlsage/internal/llm"
	"github.com/sqlsage/sqlsage/internal/prompt"
	"github.com/sqlsage/sqlsage/internal/render"
	"github.com/sqlsage/sqlsage/internal/sqltext"
	"github.com/sqlsage/sqlsage/internal/warehouse"
)

// Stage identifies one step of the answer pipeline. An Answer records the
// stage it reached: StageDone on success, the failing stage otherwise.
type Stage string

const (
	StageSelect   Stage = "select_examples"
	StagePrompt   Stage = "build_prompt"
	StageGenerate Stage = "generate"
	StageExtract  Stage = "extract"
	StageValidate Stage = "validate"
	StageExecute  Stage = "execute"
	StageFormat   Stage = "format"
	StageDone     Stage = "done"
)

// ExampleSelector returns the corpus examples most similar to a question,
// most similar first.
type ExampleSelector interface {
	Select(ctx context.Context, question string, k int) ([]fewshot.Example, error)
}

// Generator turns a prompt into raw model text in one blocking call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Executor runs one validated statement and shapes its result.
type Executor interface {
	Query(ctx context.Context, sql string) (*warehouse.Result, error)
}

// SyntaxChecker asks the warehouse to parse a statement without executing
// it, so dialect errors surface before execution.
type SyntaxChecker interface {
	CheckSyntax(ctx context.Context, sql string) error
}

// Deps are the pipeline's collaborators, constructed once at startup and
// shared across requests. Checker is optional; nil disables the syntax
// pre-flight.
type Deps struct {
	Selector  ExampleSelector
	Generator Generator
	Executor  Executor
	Checker   SyntaxChecker
}

// Config bounds one answer request.
type Config struct {
	// TableInfo is the schema text rendered into every prompt, read once
	// at startup from the warehouse (or the corpus fallback).
	TableInfo string
	// TopK is the number of examples selected per question and the
	// row-limit hint in the prompt instructions. Zero means 3.
	TopK int
	// Timeout bounds a whole request when the caller's context carries no
	// deadline. Zero means 60s.
	Timeout time.Duration
}

const (
	defaultTopK    = 3
	defaultTimeout = 60 * time.Second
)

// Answer is the pipeline's sole output. SQL and Text are always
// displayable; Stage and Err describe where a failed request stopped and
// why, for logs and programmatic callers.
type Answer struct {
	SQL   string
	Text  string
	Stage Stage
	Err   error
}

// Pipeline answers natural-language questions about the warehouse. All
// fields are read-only after New, so concurrent Answer calls are safe.
type Pipeline struct {
	selector  ExampleSelector
	generator Generator
	executor  Executor
	checker   SyntaxChecker
	tableInfo string
	topK      int
	timeout   time.Duration
	logger    *slog.Logger
}

// New validates the collaborators and returns a ready Pipeline. A nil
// logger falls back to slog.Default().
func New(deps Deps, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if deps.Selector == nil {
		return nil, errors.New("pipeline: selector is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	if deps.Executor == nil {
		return nil, errors.New("pipeline: executor is required")
	}
	if cfg.TableInfo == "" {
		return nil, errors.New("pipeline: table info is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		selector:  deps.Selector,
		generator: deps.Generator,
		executor:  deps.Executor,
		checker:   deps.Checker,
		tableInfo: cfg.TableInfo,
		topK:      cfg.TopK,
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// Answer runs the whole pipeline for one question. It always returns a
// usable Answer: any stage failure is folded into the SQL/Text fields
// instead of propagating. When ctx carries no deadline the configured
// request timeout applies; deadline expiry in any stage produces a
// timeout-specific answer.
func (p *Pipeline) Answer(ctx context.Context, question string) Answer {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	logger := p.logger.With("request_id", uuid.NewString())
	start := time.Now()
	logger.Debug("answering question", "question", question)

	examples, err := p.selector.Select(ctx, question, p.topK)
	if err != nil {
		return p.fail(logger, StageSelect, "", err)
	}
	logger.Debug("examples selected", "stage", StageSelect, "examples", len(examples), "elapsed", time.Since(start))

	promptText := prompt.Build(p.tableInfo, question, p.topK, examples)
	logger.Debug("prompt built", "stage", StagePrompt, "bytes", len(promptText), "elapsed", time.Since(start))

	raw, err := p.generator.Generate(ctx, promptText)
	if err != nil {
		return p.fail(logger, StageGenerate, "", err)
	}
	logger.Debug("model responded", "stage", StageGenerate, "bytes", len(raw), "elapsed", time.Since(start))

	sql, ok := sqltext.Extract(raw)
	if !ok {
		return p.fail(logger, StageExtract, "", sqltext.ErrNoCandidate)
	}
	logger.Debug("sql extracted", "stage", StageExtract, "sql", sql, "elapsed", time.Since(start))

	if err := sqltext.Validate(sql); err != nil {
		return p.fail(logger, StageValidate, sql, err)
	}
	if p.checker != nil {
		if err := p.checker.CheckSyntax(ctx, sql); err != nil {
			return p.fail(logger, StageValidate, sql, fmt.Errorf("%w: syntax pre-flight: %w", sqltext.ErrInvalidSQL, err))
		}
	}
	logger.Debug("sql validated", "stage", StageValidate, "elapsed", time.Since(start))

	res, err := p.executor.Query(ctx, sql)
	if err != nil {
		return p.fail(logger, StageExecute, sql, err)
	}
	logger.Debug("sql executed", "stage", StageExecute, "rows", len(res.Rows), "elapsed", time.Since(start))

	text := render.Format(res)
	logger.Info("question answered", "stage", StageFormat, "sql", sql, "elapsed", time.Since(start))

	return Answer{SQL: sql, Text: text, Stage: StageDone}
}

// fail folds a stage failure into a displayable Answer. The SQL field
// keeps the offending statement once one exists; earlier failures carry an
// error placeholder in its place, matching what callers print.
func (p *Pipeline) fail(logger *slog.Logger, stage Stage, sql string, err error) Answer {
	logger.Warn("answer pipeline failed", "stage", stage, "error", err)

	if sql == "" {
		sql = "-- Error: " + err.Error()
	}

	var text string
	switch {
	case isTimeout(err):
		text = fmt.Sprintf("Sorry, the request timed out: %v", err)
	case errors.Is(err, context.Canceled):
		text = fmt.Sprintf("Sorry, the request was canceled: %v", err)
	default:
		text = fmt.Sprintf("Sorry, I encountered an error: %v", err)
	}

	return Answer{SQL: sql, Text: text, Stage: stage, Err: err}
}

// isTimeout matches deadline expiry wherever it surfaced: the raw context
// error or the timeout sentinels the generator and executor wrap it in.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, llm.ErrTimeout) ||
		errors.Is(err, warehouse.ErrTimeout)
}
