package fewshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sqlsage/sqlsage/internal/log"
)

func TestLoadEmbeddedCorpus(t *testing.T) {
	store := Load("", log.NewNop())

	examples := store.Examples()
	if len(examples) < 2 {
		t.Fatalf("embedded corpus has %d examples, want at least 2", len(examples))
	}
	if got := store.Len(); got != len(examples) {
		t.Errorf("Len() = %d, want %d", got, len(examples))
	}

	if examples[0].Input != "How many artists are there?" {
		t.Errorf("first example input = %q, want %q", examples[0].Input, "How many artists are there?")
	}
	if examples[0].SQLCmd != "SELECT COUNT(*) FROM artists;" {
		t.Errorf("first example sql_cmd = %q, want %q", examples[0].SQLCmd, "SELECT COUNT(*) FROM artists;")
	}

	for i, ex := range examples {
		if ex.Input == "" || ex.SQLCmd == "" || ex.Answer == "" {
			t.Errorf("example %d has empty fields: %+v", i, ex)
		}
		if !strings.Contains(ex.TableInfo, "CREATE TABLE artists") {
			t.Errorf("example %d table_info missing artists DDL: %q", i, ex.TableInfo)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	corpus := `- input: How many paintings are there?
  sql_cmd: SELECT COUNT(*) FROM paintings;
  sql_result: "[(42,)]"
  answer: There are 42 paintings.
  table_info: CREATE TABLE paintings (painting_id INTEGER)
- input: Who painted the most works?
  sql_cmd: SELECT "artist" FROM paintings GROUP BY "artist" ORDER BY COUNT(*) DESC LIMIT 1;
  sql_result: "[('Picasso',)]"
  answer: Picasso painted the most works.
  table_info: CREATE TABLE paintings (painting_id INTEGER)
`
	path := filepath.Join(t.TempDir(), "examples.yaml")
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		t.Fatal(err)
	}

	store := Load(path, log.NewNop())

	examples := store.Examples()
	if len(examples) != 2 {
		t.Fatalf("Examples() returned %d examples, want 2", len(examples))
	}
	if examples[0].Input != "How many paintings are there?" {
		t.Errorf("first input = %q, file order not preserved", examples[0].Input)
	}
	if examples[1].SQLResult != "[('Picasso',)]" {
		t.Errorf("second sql_result = %q, want %q", examples[1].SQLResult, "[('Picasso',)]")
	}
}

func TestLoadFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		content string // written to the corpus file; empty means no file
	}{
		{name: "missing file"},
		{name: "malformed yaml", content: "{{not yaml"},
		{name: "wrong shape", content: "input: not-a-list\n"},
		{name: "empty list", content: "[]\n"},
		{name: "missing required fields", content: "- answer: no question or sql here\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "examples.yaml")
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			store := Load(path, log.NewNop())

			examples := store.Examples()
			if len(examples) != 1 {
				t.Fatalf("fallback corpus has %d examples, want 1", len(examples))
			}
			if examples[0] != fallbackExample {
				t.Errorf("fallback example = %+v, want %+v", examples[0], fallbackExample)
			}
		})
	}
}
