package sqltext

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "sql tagged fence",
			raw:  "Here is the query:\n```sql\nSELECT COUNT(*) FROM artists;\n```\nHope that helps.",
			want: "SELECT COUNT(*) FROM artists;",
			ok:   true,
		},
		{
			name: "sql tag is case-insensitive",
			raw:  "```SQL\nSELECT 1;\n```",
			want: "SELECT 1;",
			ok:   true,
		},
		{
			name: "sql fence preferred over earlier untagged fence",
			raw:  "```\nnot the query\n```\n```sql\nSELECT 2;\n```",
			want: "SELECT 2;",
			ok:   true,
		},
		{
			name: "untagged fence",
			raw:  "The answer:\n```\nSELECT full_name FROM artists LIMIT 5;\n```",
			want: "SELECT full_name FROM artists LIMIT 5;",
			ok:   true,
		},
		{
			name: "other language tag still a fence",
			raw:  "```postgresql\nSELECT 3;\n```",
			want: "SELECT 3;",
			ok:   true,
		},
		{
			name: "unterminated fence takes the rest",
			raw:  "```sql\nSELECT COUNT(*)\nFROM artists",
			want: "SELECT COUNT(*)\nFROM artists",
			ok:   true,
		},
		{
			name: "multi-line statement inside fence",
			raw:  "```sql\nSELECT \"nationality\", COUNT(*)\nFROM artists\nGROUP BY \"nationality\"\n```",
			want: "SELECT \"nationality\", COUNT(*)\nFROM artists\nGROUP BY \"nationality\"",
			ok:   true,
		},
		{
			name: "prose stripped by keyword filter",
			raw:  "Sure! The query below counts the artists.\nSELECT COUNT(*) FROM artists;\nLet me know if you need more.",
			want: "SELECT COUNT(*) FROM artists;",
			ok:   true,
		},
		{
			name: "few-shot continuation stripped by keyword filter",
			raw:  "SELECT COUNT(*) FROM artists;\nSQLResult: [(15086,)]\nAnswer: There are 15086 artists.",
			want: "SELECT COUNT(*) FROM artists;",
			ok:   true,
		},
		{
			name: "bare statement passes through",
			raw:  "  SELECT COUNT(*) FROM artists;  ",
			want: "SELECT COUNT(*) FROM artists;",
			ok:   true,
		},
		{
			name: "echoed SQLQuery label trimmed",
			raw:  "SQLQuery: SELECT COUNT(*) FROM artists;",
			want: "SELECT COUNT(*) FROM artists;",
			ok:   true,
		},
		{
			name: "no keywords falls back to whole input",
			raw:  "I cannot answer that question.",
			want: "I cannot answer that question.",
			ok:   true,
		},
		{
			name: "empty fence skipped",
			raw:  "```sql\n```\nSELECT 4;",
			want: "SELECT 4;",
			ok:   true,
		},
		{
			name: "empty input",
			raw:  "",
			want: "",
			ok:   false,
		},
		{
			name: "whitespace input",
			raw:  "   \n\t  ",
			want: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.raw)
			if ok != tt.ok {
				t.Fatalf("Extract() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}
