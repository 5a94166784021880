package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sampleRowLimit rows of each table are inlined into the schema text so the
// model sees what the data looks like, not just the column names.
const sampleRowLimit = 3

// internalTables never appear in prompt schema text.
var internalTables = map[string]bool{
	"schema_migrations": true,
	"fewshot_examples":  true,
}

// Schema renders the warehouse schema for prompt use: one CREATE TABLE
// block per user table in the public schema, each followed by a comment
// holding up to three sample rows. Table and column order are stable across
// calls.
func (e *Executor) Schema(ctx context.Context) (string, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return "", e.wrap("acquiring connection", err)
	}
	defer conn.Release()

	tables, err := listTables(ctx, conn)
	if err != nil {
		return "", e.wrap("listing tables", err)
	}
	if len(tables) == 0 {
		return "", fmt.Errorf("%w: no user tables in schema public", ErrQueryFailed)
	}

	blocks := make([]string, 0, len(tables))
	for _, table := range tables {
		ddl, err := tableDDL(ctx, conn, table)
		if err != nil {
			return "", e.wrap("describing table "+table, err)
		}

		block := ddl
		sample, err := sampleTable(ctx, conn, table)
		if err != nil {
			e.logger.Warn("sampling table for schema text", "table", table, "error", err)
		} else if sample != "" {
			block += "\n\n" + sample
		}
		blocks = append(blocks, block)
	}

	return strings.Join(blocks, "\n\n"), nil
}

func listTables(ctx context.Context, conn *pgxpool.Conn) ([]string, error) {
	rows, err := conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if internalTables[name] {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func tableDDL(ctx context.Context, conn *pgxpool.Conn, table string) (string, error) {
	rows, err := conn.Query(ctx, `
		SELECT column_name, data_type, character_maximum_length, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			name, dataType, nullable string
			maxLen                   *int32
		)
		if err := rows.Scan(&name, &dataType, &maxLen, &nullable); err != nil {
			return "", err
		}

		col := "\t" + name + " " + dataType
		if maxLen != nil {
			col += fmt.Sprintf("(%d)", *maxLen)
		}
		if nullable == "NO" {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", table, strings.Join(cols, ",\n")), nil
}

// sampleTable renders up to sampleRowLimit rows as a tab-separated block
// inside a SQL comment, or "" for an empty table.
func sampleTable(ctx context.Context, conn *pgxpool.Conn, table string) (string, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d",
		pgx.Identifier{table}.Sanitize(), sampleRowLimit))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, fd := range fields {
		header[i] = fd.Name
	}

	var lines []string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return "", err
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = sampleCell(v)
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "/*\n%d rows from %s table:\n", len(lines), table)
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n*/")
	return b.String(), nil
}

func sampleCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
