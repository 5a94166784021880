// Package fewshot holds the worked question/SQL example corpus and the
// similarity search used to pick the examples most relevant to a new
// question.
package fewshot

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed moma_examples.yaml
var embeddedCorpus []byte

// Example is one worked question/SQL pair shown to the model as in-context
// guidance. Field names mirror the corpus document keys.
type Example struct {
	Input     string `yaml:"input"`
	SQLCmd    string `yaml:"sql_cmd"`
	SQLResult string `yaml:"sql_result"`
	Answer    string `yaml:"answer"`
	TableInfo string `yaml:"table_info"`
}

// fallbackExample keeps the pipeline operable when no corpus can be loaded.
// It matches the artists schema shipped in db/migrations.
var fallbackExample = Example{
	Input:     "How many artists are there?",
	SQLCmd:    "SELECT COUNT(*) FROM artists;",
	SQLResult: "[(15086,)]",
	Answer:    "There are 15086 artists in the database.",
	TableInfo: `CREATE TABLE artists (
    artist_id INTEGER NOT NULL,
    full_name VARCHAR(200),
    nationality VARCHAR(50),
    gender VARCHAR(25),
    birth_year INTEGER,
    death_year INTEGER,
    CONSTRAINT artists_pk PRIMARY KEY (artist_id)
)`,
}

// Store holds the loaded example corpus, immutable after Load.
type Store struct {
	examples []Example
}

// Load reads the example corpus. An empty path loads the corpus embedded in
// the binary. Load never fails: on a missing file, a parse error, or an
// empty document it logs a warning and falls back to a single built-in
// example so the pipeline stays usable.
func Load(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	data := embeddedCorpus
	source := "embedded"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("reading example corpus, using built-in fallback", "path", path, "error", err)
			return &Store{examples: []Example{fallbackExample}}
		}
		data = b
		source = path
	}

	examples, err := parseCorpus(data)
	if err != nil {
		logger.Warn("parsing example corpus, using built-in fallback", "source", source, "error", err)
		return &Store{examples: []Example{fallbackExample}}
	}

	logger.Debug("example corpus loaded", "source", source, "examples", len(examples))
	return &Store{examples: examples}
}

func parseCorpus(data []byte) ([]Example, error) {
	var examples []Example
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("unmarshaling corpus: %w", err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("corpus contains no examples")
	}
	for i, ex := range examples {
		if ex.Input == "" || ex.SQLCmd == "" {
			return nil, fmt.Errorf("example %d: input and sql_cmd are required", i)
		}
	}
	return examples, nil
}

// Examples returns the loaded corpus in file order. The returned slice is
// shared and must be treated as read-only; it is never empty.
func (s *Store) Examples() []Example {
	return s.examples
}

// Len reports the corpus size.
func (s *Store) Len() int {
	return len(s.examples)
}
