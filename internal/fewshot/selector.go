package fewshot

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/firebase/genkit/go/ai"
)

// VectorDimension is the embedding width the pgvector index schema is
// provisioned with. Gemini embedding models are asked to truncate their
// output to this size so both index backends agree.
const VectorDimension = 768

// ScoredExample pairs an example with its similarity to a query; higher
// means more similar.
type ScoredExample struct {
	Example Example
	Score   float64
}

// Index ranks stored example vectors by similarity to a query vector.
// Build is called once with every example and its embedding, in corpus
// order. Nearest returns at most k examples, most similar first, breaking
// ties by corpus position.
type Index interface {
	Build(ctx context.Context, examples []Example, vectors [][]float32) error
	Nearest(ctx context.Context, vector []float32, k int) ([]ScoredExample, error)
}

// Selector picks the corpus examples most similar to a question. It embeds
// the whole corpus once at construction; afterwards the index is read-only,
// so concurrent Select calls are safe.
type Selector struct {
	embedder  ai.Embedder
	index     Index
	embedOpts any
	logger    *slog.Logger
}

// SelectorOption customizes NewSelector.
type SelectorOption func(*Selector)

// WithIndex replaces the default in-memory index, e.g. with a PGIndex.
func WithIndex(index Index) SelectorOption {
	return func(s *Selector) { s.index = index }
}

// WithEmbedOptions sets provider-specific options passed on every embed
// call, e.g. *genai.EmbedContentConfig to pin the output dimensionality.
func WithEmbedOptions(opts any) SelectorOption {
	return func(s *Selector) { s.embedOpts = opts }
}

// WithLogger sets the selector logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SelectorOption {
	return func(s *Selector) { s.logger = logger }
}

// NewSelector embeds every example input in the store and builds the
// similarity index. It fails when embedding or index construction fails;
// the caller decides whether that is fatal.
func NewSelector(ctx context.Context, embedder ai.Embedder, store *Store, opts ...SelectorOption) (*Selector, error) {
	s := &Selector{
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.index == nil {
		s.index = &memIndex{}
	}

	examples := store.Examples()
	vectors, err := s.embedInputs(ctx, examples)
	if err != nil {
		return nil, err
	}
	if err := s.index.Build(ctx, examples, vectors); err != nil {
		return nil, fmt.Errorf("building example index: %w", err)
	}

	s.logger.Debug("example index built", "examples", len(examples), "dimensions", len(vectors[0]))
	return s, nil
}

// embedInputs embeds all example inputs in a single batch request.
func (s *Selector) embedInputs(ctx context.Context, examples []Example) ([][]float32, error) {
	docs := make([]*ai.Document, len(examples))
	for i, ex := range examples {
		docs[i] = ai.DocumentFromText(ex.Input, nil)
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs, Options: s.embedOpts})
	if err != nil {
		return nil, fmt.Errorf("embedding corpus: %w", err)
	}
	if len(resp.Embeddings) != len(examples) {
		return nil, fmt.Errorf("embedding corpus: got %d embeddings for %d examples", len(resp.Embeddings), len(examples))
	}

	vectors := make([][]float32, len(examples))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("embedding corpus: empty vector for example %d", i)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}

// Select returns the min(k, corpus size) examples most similar to question,
// most similar first. A k below 1 is treated as 1.
func (s *Selector) Select(ctx context.Context, question string, k int) ([]Example, error) {
	if k < 1 {
		k = 1
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(question, nil)},
		Options: s.embedOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding question: empty vector")
	}

	scored, err := s.index.Nearest(ctx, resp.Embeddings[0].Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("searching example index: %w", err)
	}

	examples := make([]Example, len(scored))
	for i, sc := range scored {
		examples[i] = sc.Example
	}
	return examples, nil
}

// memIndex is the default in-memory index: a linear cosine-similarity scan
// over the corpus. Read-only after Build.
type memIndex struct {
	examples []Example
	vectors  [][]float32
}

func (m *memIndex) Build(_ context.Context, examples []Example, vectors [][]float32) error {
	m.examples = examples
	m.vectors = vectors
	return nil
}

func (m *memIndex) Nearest(_ context.Context, vector []float32, k int) ([]ScoredExample, error) {
	scored := make([]ScoredExample, len(m.examples))
	for i, ex := range m.examples {
		scored[i] = ScoredExample{Example: ex, Score: cosineSimilarity(vector, m.vectors[i])}
	}

	// Stable sort keeps corpus order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when the lengths differ or either vector is all zeros.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
