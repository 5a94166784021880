package prompt

import (
	"strings"
	"testing"

	"github.com/sqlsage/sqlsage/internal/fewshot"
)

var testExamples = []fewshot.Example{
	{
		Input:     "How many artists are there?",
		SQLCmd:    "SELECT COUNT(*) FROM artists;",
		SQLResult: "[(15086,)]",
		Answer:    "There are 15086 artists in the database.",
		TableInfo: "CREATE TABLE artists (artist_id INTEGER)",
	},
	{
		Input:     "How many American artists are there?",
		SQLCmd:    "SELECT COUNT(*) FROM artists WHERE nationality = 'American';",
		SQLResult: "[(5002,)]",
		Answer:    "There are 5002 American artists in the database.",
		TableInfo: "CREATE TABLE artists (artist_id INTEGER)",
	},
}

func TestBuildLayout(t *testing.T) {
	got := Build("CREATE TABLE artists (artist_id INTEGER)", "How many female artists are there?", 3, testExamples)

	wantFragments := []string{
		"You are a PostgreSQL expert.",
		"query for at most 3 results using the LIMIT clause",
		"Provide no preamble",
		"Question: How many artists are there?\nSQLQuery: SELECT COUNT(*) FROM artists;\nSQLResult: [(15086,)]\nAnswer: There are 15086 artists in the database.",
		"Only use the following tables:\nCREATE TABLE artists (artist_id INTEGER)",
	}
	for _, frag := range wantFragments {
		if !strings.Contains(got, frag) {
			t.Errorf("Build() missing fragment %q", frag)
		}
	}

	if !strings.HasSuffix(got, "Question: How many female artists are there?\nSQLQuery:") {
		t.Errorf("Build() must end at the SQLQuery label, got tail %q", tail(got, 80))
	}
}

func TestBuildExampleOrderPreserved(t *testing.T) {
	got := Build("ddl", "q", 3, testExamples)

	first := strings.Index(got, "How many artists are there?")
	second := strings.Index(got, "How many American artists are there?")
	if first < 0 || second < 0 {
		t.Fatal("Build() dropped an example")
	}
	if first > second {
		t.Errorf("Build() reordered examples: first at %d, second at %d", first, second)
	}
}

func TestBuildBlockSeparation(t *testing.T) {
	got := Build("ddl", "q", 3, testExamples)

	// Prefix, two examples, suffix: three blank-line separators.
	if n := strings.Count(got, "\n\nCREATE TABLE artists"); n != 2 {
		t.Errorf("Build() example blocks start after blank lines %d times, want 2", n)
	}
	if !strings.Contains(got, "Provide no preamble\n\nCREATE TABLE artists") {
		t.Error("Build() first example does not directly follow the prefix")
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := Build("ddl", "How many artists?", 3, testExamples)
	b := Build("ddl", "How many artists?", 3, testExamples)
	if a != b {
		t.Error("Build() is not deterministic for identical inputs")
	}
}

func TestBuildNoExamples(t *testing.T) {
	got := Build("ddl", "q", 5, nil)

	if !strings.Contains(got, "at most 5 results") {
		t.Error("Build() dropped the row-limit hint")
	}
	if !strings.Contains(got, "Provide no preamble\n\nOnly use the following tables:") {
		t.Error("Build() without examples must join prefix directly to suffix")
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
