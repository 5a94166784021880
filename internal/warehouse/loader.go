package warehouse

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// artistColumns is the expected CSV header, in order.
var artistColumns = []string{"artist_id", "full_name", "nationality", "gender", "birth_year", "death_year"}

// LoadCSV streams an artists CSV into the artists table with COPY. The file
// must carry the artistColumns header; empty fields load as NULL. With
// truncate set the table is emptied first. Returns the number of rows
// written.
func (e *Executor) LoadCSV(ctx context.Context, path string, truncate bool) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("reading csv header: %w", err)
	}
	if err := checkArtistHeader(header); err != nil {
		return 0, err
	}

	if truncate {
		if _, err := e.pool.Exec(ctx, "TRUNCATE TABLE artists"); err != nil {
			return 0, e.wrap("truncating artists", err)
		}
	}

	src := &artistRows{reader: reader, line: 1}
	n, err := e.pool.CopyFrom(ctx, pgx.Identifier{"artists"}, artistColumns, src)
	if err != nil {
		if src.err != nil {
			return 0, src.err
		}
		return 0, e.wrap("copying artists", err)
	}

	e.logger.Info("artists loaded", "path", path, "rows", n)
	return n, nil
}

func checkArtistHeader(header []string) error {
	if len(header) != len(artistColumns) {
		return fmt.Errorf("csv header has %d columns, want %d (%s)",
			len(header), len(artistColumns), strings.Join(artistColumns, ","))
	}
	for i, want := range artistColumns {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return fmt.Errorf("csv column %d is %q, want %q", i+1, header[i], want)
		}
	}
	return nil
}

// artistRows adapts the CSV reader to pgx.CopyFromSource so the file
// streams through COPY without buffering whole in memory.
type artistRows struct {
	reader *csv.Reader
	row    []any
	err    error
	line   int
}

func (a *artistRows) Next() bool {
	record, err := a.reader.Read()
	if errors.Is(err, io.EOF) {
		return false
	}
	a.line++
	if err != nil {
		a.err = fmt.Errorf("csv line %d: %w", a.line, err)
		return false
	}

	row, err := artistRow(record)
	if err != nil {
		a.err = fmt.Errorf("csv line %d: %w", a.line, err)
		return false
	}
	a.row = row
	return true
}

func (a *artistRows) Values() ([]any, error) { return a.row, a.err }

func (a *artistRows) Err() error { return a.err }

func artistRow(record []string) ([]any, error) {
	if len(record) != len(artistColumns) {
		return nil, fmt.Errorf("has %d fields, want %d", len(record), len(artistColumns))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("artist_id %q: %w", record[0], err)
	}

	birth, err := nullInt(record[4])
	if err != nil {
		return nil, fmt.Errorf("birth_year %q: %w", record[4], err)
	}
	death, err := nullInt(record[5])
	if err != nil {
		return nil, fmt.Errorf("death_year %q: %w", record[5], err)
	}

	return []any{
		int32(id),
		nullString(record[1]),
		nullString(record[2]),
		nullString(record[3]),
		birth,
		death,
	}, nil
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullInt(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, err
	}
	return int32(v), nil
}
