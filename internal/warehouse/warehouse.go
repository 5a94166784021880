// Package warehouse executes validated SQL against the analytics database.
// It owns every direct pgx dependency of the answer path: execution, syntax
// pre-flight, schema introspection, and bulk loading.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrQueryFailed wraps any execution failure other than a deadline.
	ErrQueryFailed = errors.New("query failed")

	// ErrTimeout wraps executions aborted by the statement deadline.
	ErrTimeout = errors.New("query timed out")
)

// Result holds an executed query's output. Rows carries at most the
// executor's MaxRows; Truncated and Omitted describe what was dropped.
// Column order matches the statement's select list.
type Result struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
	Omitted   int
}

// Scalar returns the single value of a one-row, one-column result.
func (r *Result) Scalar() (any, bool) {
	if r == nil || len(r.Rows) != 1 || len(r.Rows[0]) != 1 {
		return nil, false
	}
	return r.Rows[0][0], true
}

// Config bounds query execution.
type Config struct {
	// MaxRows caps how many rows a Result carries. Zero means 20.
	MaxRows int
	// QueryTimeout bounds each statement when the caller's context has no
	// earlier deadline. Zero means 30s.
	QueryTimeout time.Duration
}

const (
	defaultMaxRows      = 20
	defaultQueryTimeout = 30 * time.Second
)

// Executor runs statements on the warehouse pool. It trusts its callers to
// have validated statements as read-only; it adds deadlines and row caps.
type Executor struct {
	pool   *pgxpool.Pool
	cfg    Config
	logger *slog.Logger
}

// New creates an Executor on pool. Zero Config fields take the package
// defaults; a nil logger falls back to slog.Default().
func New(pool *pgxpool.Pool, cfg Config, logger *slog.Logger) *Executor {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultMaxRows
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{pool: pool, cfg: cfg, logger: logger}
}

// MaxRows reports the row cap applied to results.
func (e *Executor) MaxRows() int {
	return e.cfg.MaxRows
}

// Query executes sql and collects up to MaxRows rows, draining the rest so
// Omitted is exact. The statement runs under QueryTimeout unless ctx
// already carries an earlier deadline. Deadline expiry surfaces wrapped in
// ErrTimeout, everything else in ErrQueryFailed.
func (e *Executor) Query(ctx context.Context, sql string) (*Result, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		return nil, e.wrap("executing query", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	res := &Result{Columns: columns}
	for rows.Next() {
		if len(res.Rows) >= e.cfg.MaxRows {
			res.Truncated = true
			res.Omitted++
			continue
		}
		values, err := rows.Values()
		if err != nil {
			return nil, e.wrap("reading row", err)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, e.wrap("reading rows", err)
	}

	e.logger.Debug("query executed",
		"rows", len(res.Rows),
		"omitted", res.Omitted,
		"elapsed", time.Since(start),
	)
	return res, nil
}

// CheckSyntax asks the server to parse sql without executing it, via an
// unnamed prepared statement on a dedicated connection. The statement is
// never run, so side effects are impossible even for mutating SQL.
func (e *Executor) CheckSyntax(ctx context.Context, sql string) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return e.wrap("acquiring connection", err)
	}
	defer conn.Release()

	if _, err := conn.Conn().Prepare(ctx, "", sql); err != nil {
		return e.wrap("preparing statement", err)
	}
	return nil
}

// Ping verifies connectivity with a trivial round trip.
func (e *Executor) Ping(ctx context.Context) error {
	var one int
	if err := e.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return e.wrap("pinging warehouse", err)
	}
	return nil
}

// wrap maps driver errors onto the package sentinels.
func (e *Executor) wrap(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrQueryFailed, op, err)
}
