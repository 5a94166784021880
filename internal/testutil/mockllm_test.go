package testutil

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

func TestMockLLMPatternMatching(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	mock := NewMockLLM("SELECT 0;")
	mock.AddResponse("artists", "SELECT COUNT(*) FROM artists;")
	mock.AddResponse("nationality", "SELECT DISTINCT nationality FROM artists;")
	model := mock.RegisterModel(g)

	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{name: "first matching rule wins", prompt: "How many ARTISTS by nationality?", want: "SELECT COUNT(*) FROM artists;"},
		{name: "pattern match is case-insensitive", prompt: "list every NATIONALITY", want: "SELECT DISTINCT nationality FROM artists;"},
		{name: "no match falls back", prompt: "something unrelated", want: "SELECT 0;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := genkit.Generate(ctx, g, ai.WithModel(model), ai.WithPrompt(tt.prompt))
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got := resp.Text(); got != tt.want {
				t.Errorf("Generate() = %q, want %q", got, tt.want)
			}
		})
	}

	calls := mock.Calls()
	if len(calls) != len(tests) {
		t.Fatalf("recorded %d calls, want %d", len(calls), len(tests))
	}
	if calls[0].Response != "SELECT COUNT(*) FROM artists;" {
		t.Errorf("calls[0].Response = %q, want the artists rule", calls[0].Response)
	}

	mock.Reset()
	if got := len(mock.Calls()); got != 0 {
		t.Errorf("Calls() after Reset() has %d entries, want 0", got)
	}
}

func TestMockEmbedderDeterminism(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	mock := NewMockEmbedder(16)
	embedder := mock.RegisterEmbedder(g)

	embed := func(text string) []float32 {
		t.Helper()
		resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
			Input: []*ai.Document{ai.DocumentFromText(text, nil)},
		})
		if err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
		return resp.Embeddings[0].Embedding
	}

	first := embed("how many artists are there")
	second := embed("how many artists are there")
	if len(first) != 16 {
		t.Fatalf("vector has %d dimensions, want 16", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeated embedding differs at index %d: %v vs %v", i, first[i], second[i])
		}
	}

	other := embed("a completely different question")
	same := true
	for i := range first {
		if first[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts produced identical vectors")
	}
}

func TestMockEmbedderSetVector(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	mock := NewMockEmbedder(3)
	mock.SetVector("pinned", []float32{0, 1, 0})
	embedder := mock.RegisterEmbedder(g)

	resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText("pinned", nil)},
	})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	got := resp.Embeddings[0].Embedding
	want := []float32{0, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Embed(pinned) = %v, want %v", got, want)
		}
	}
}
