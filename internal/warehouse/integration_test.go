package warehouse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sqlsage/sqlsage/internal/log"
	"github.com/sqlsage/sqlsage/internal/testutil"
)

func TestQueryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	exec := New(db.Pool, Config{}, log.NewNop())
	seedArtists(t, exec)

	t.Run("scalar count", func(t *testing.T) {
		res, err := exec.Query(ctx, "SELECT COUNT(*) FROM artists")
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		v, ok := res.Scalar()
		if !ok {
			t.Fatalf("Scalar() not ok for %+v", res)
		}
		if v != int64(3) {
			t.Errorf("Scalar() = %v (%T), want 3", v, v)
		}
	})

	t.Run("column names preserved", func(t *testing.T) {
		res, err := exec.Query(ctx, `SELECT full_name AS artist, birth_year FROM artists ORDER BY artist_id LIMIT 1`)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(res.Columns) != 2 || res.Columns[0] != "artist" || res.Columns[1] != "birth_year" {
			t.Errorf("Columns = %v, want [artist birth_year]", res.Columns)
		}
		if len(res.Rows) != 1 || res.Rows[0][0] != "Frida Kahlo" {
			t.Errorf("Rows = %v, want first artist Frida Kahlo", res.Rows)
		}
	})

	t.Run("row cap and omitted count", func(t *testing.T) {
		capped := New(db.Pool, Config{MaxRows: 5}, log.NewNop())
		res, err := capped.Query(ctx, "SELECT * FROM generate_series(1, 12)")
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(res.Rows) != 5 {
			t.Errorf("len(Rows) = %d, want 5", len(res.Rows))
		}
		if !res.Truncated || res.Omitted != 7 {
			t.Errorf("Truncated = %v, Omitted = %d, want true, 7", res.Truncated, res.Omitted)
		}
	})

	t.Run("under the cap is not truncated", func(t *testing.T) {
		res, err := exec.Query(ctx, "SELECT * FROM generate_series(1, 3)")
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if res.Truncated || res.Omitted != 0 {
			t.Errorf("Truncated = %v, Omitted = %d, want false, 0", res.Truncated, res.Omitted)
		}
	})

	t.Run("failure wraps ErrQueryFailed", func(t *testing.T) {
		_, err := exec.Query(ctx, "SELECT * FROM no_such_table")
		if !errors.Is(err, ErrQueryFailed) {
			t.Errorf("Query() error = %v, want ErrQueryFailed", err)
		}
	})

	t.Run("deadline wraps ErrTimeout", func(t *testing.T) {
		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := exec.Query(short, "SELECT pg_sleep(5)")
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("Query() error = %v, want ErrTimeout", err)
		}
	})
}

func TestCheckSyntaxIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	exec := New(db.Pool, Config{}, log.NewNop())
	seedArtists(t, exec)

	if err := exec.CheckSyntax(ctx, "SELECT COUNT(*) FROM artists"); err != nil {
		t.Errorf("CheckSyntax(valid) = %v, want nil", err)
	}
	if err := exec.CheckSyntax(ctx, "SELCT 1"); err == nil {
		t.Error("CheckSyntax(misspelled) = nil, want error")
	}
	if err := exec.CheckSyntax(ctx, "SELECT nope FROM artists"); err == nil {
		t.Error("CheckSyntax(unknown column) = nil, want error")
	}

	// Pre-flight parses but never executes.
	if err := exec.CheckSyntax(ctx, "DELETE FROM artists"); err != nil {
		t.Errorf("CheckSyntax(DELETE) = %v, want nil", err)
	}
	res, err := exec.Query(ctx, "SELECT COUNT(*) FROM artists")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if v, _ := res.Scalar(); v != int64(3) {
		t.Errorf("artists count after CheckSyntax(DELETE) = %v, want 3", v)
	}

	if err := exec.Ping(ctx); err != nil {
		t.Errorf("Ping() = %v, want nil", err)
	}
}

func TestSchemaIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	exec := New(db.Pool, Config{}, log.NewNop())
	seedArtists(t, exec)

	schema, err := exec.Schema(ctx)
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}

	wantFragments := []string{
		"CREATE TABLE artists (",
		"artist_id integer NOT NULL",
		"full_name character varying(200)",
		"birth_year integer",
		"3 rows from artists table:",
		"Frida Kahlo",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(schema, frag) {
			t.Errorf("Schema() missing %q in:\n%s", frag, schema)
		}
	}

	if strings.Contains(schema, "schema_migrations") || strings.Contains(schema, "fewshot_examples") {
		t.Errorf("Schema() leaked internal tables:\n%s", schema)
	}
}

func TestLoadCSVIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	exec := New(db.Pool, Config{}, log.NewNop())

	csvBody := `artist_id,full_name,nationality,gender,birth_year,death_year
1,Frida Kahlo,Mexican,Female,1907,1954
2,Yayoi Kusama,Japanese,Female,1929,
3,Unknown Artist,,,," "`
	path := filepath.Join(t.TempDir(), "artists.csv")
	if err := os.WriteFile(path, []byte(csvBody), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := exec.LoadCSV(ctx, path, false)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if n != 3 {
		t.Errorf("LoadCSV() = %d rows, want 3", n)
	}

	res, err := exec.Query(ctx, "SELECT COUNT(*) FROM artists WHERE death_year IS NULL")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if v, _ := res.Scalar(); v != int64(2) {
		t.Errorf("NULL death_year count = %v, want 2 (empty fields load as NULL)", v)
	}

	// Loading again with truncate replaces instead of appending.
	n, err = exec.LoadCSV(ctx, path, true)
	if err != nil {
		t.Fatalf("LoadCSV(truncate) error = %v", err)
	}
	if n != 3 {
		t.Errorf("LoadCSV(truncate) = %d rows, want 3", n)
	}
	res, err = exec.Query(ctx, "SELECT COUNT(*) FROM artists")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if v, _ := res.Scalar(); v != int64(3) {
		t.Errorf("artists count after truncate+load = %v, want 3", v)
	}

	if _, err := exec.LoadCSV(ctx, filepath.Join(t.TempDir(), "absent.csv"), false); err == nil {
		t.Error("LoadCSV(missing file) = nil, want error")
	}

	badHeader := "id,name\n1,x\n"
	badPath := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(badPath, []byte(badHeader), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := exec.LoadCSV(ctx, badPath, false); err == nil {
		t.Error("LoadCSV(bad header) = nil, want error")
	}
}

// seedArtists loads a fixed three-artist dataset, replacing whatever the
// table holds.
func seedArtists(t *testing.T, exec *Executor) {
	t.Helper()

	csvBody := `artist_id,full_name,nationality,gender,birth_year,death_year
1,Frida Kahlo,Mexican,Female,1907,1954
2,Yayoi Kusama,Japanese,Female,1929,
3,Vincent van Gogh,Dutch,Male,1853,1890`
	path := filepath.Join(t.TempDir(), "seed.csv")
	if err := os.WriteFile(path, []byte(csvBody), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := exec.LoadCSV(context.Background(), path, true); err != nil {
		t.Fatalf("seeding artists: %v", err)
	}
}
