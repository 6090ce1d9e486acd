package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/XingxingLi2017/memory-mcp/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "memory.db"), 512)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// stubEmbedder returns a fixed unit vector regardless of input text, so
// tests can control similarity by choosing which chunk gets a matching
// vector inserted.
type stubEmbedder struct {
	vector    []float32
	available bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int              { return store.Dimensions }
func (s *stubEmbedder) ModelName() string            { return "stub" }
func (s *stubEmbedder) Available(context.Context) bool { return s.available }
func (s *stubEmbedder) Close() error                 { return nil }

func unitVector(seed float32) []float32 {
	v := make([]float32, store.Dimensions)
	for i := range v {
		v[i] = seed
	}
	return v
}

func seedChunk(t *testing.T, st *store.Store, path string, startLine int, text string, mtime int64) {
	t.Helper()
	id := path + "-" + text
	file := store.File{Path: path, Source: "memory", Hash: "h-" + path, Mtime: mtime, Size: int64(len(text))}
	c := store.Chunk{ID: id, Path: path, Source: "memory", StartLine: startLine, EndLine: startLine, Hash: "ch-" + id, Text: text}
	lex := []store.LexicalEntry{{ChunkID: id, SegmentedText: text}}
	require.NoError(t, st.ReindexFile(context.Background(), file, []store.Chunk{c}, lex, st.FTSAvailable()))
}

func TestSearchLexicalOnlyWhenEmbedderUnavailable(t *testing.T) {
	st := openTestStore(t)
	seedChunk(t, st, "notes.md", 1, "the quick brown fox jumps", 1000)

	e := New(st, &stubEmbedder{vector: unitVector(1), available: false})
	results, err := e.Search(context.Background(), "quick fox", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "notes.md", results[0].Path)
	// Single-path normalization gives the lone lexical hit a 1.0, then this
	// call's own access-count bump (to 1) nudges it to 0.865 via accessBoost.
	// If fusion wrongly halved it against an empty vector map, this would be ~0.5.
	require.InDelta(t, 0.865, results[0].Score, 0.01)
}

func TestSearchVectorOnlyWhenLexicalMisses(t *testing.T) {
	st := openTestStore(t)
	vec := unitVector(1)
	seedChunk(t, st, "notes.md", 1, "completely unrelated lexical text", 1000)
	require.NoError(t, st.InsertEmbeddings(context.Background(), []store.EmbeddingWrite{
		{ChunkID: "notes.md-completely unrelated lexical text", TextHash: "ch-notes.md-notes.md-completely unrelated lexical text", Vector: vec},
	}))

	e := New(st, &stubEmbedder{vector: vec, available: true})
	results, err := e.Search(context.Background(), "some query with no lexical overlap token zzz", Options{MinScore: -1})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "notes.md", results[0].Path)
}

func TestSearchFallsBackToSubstringWhenBothPathsEmpty(t *testing.T) {
	st := openTestStore(t)
	seedChunk(t, st, "notes.md", 1, "xyzzy plugh marker text", 1000)

	e := New(st, &stubEmbedder{vector: unitVector(1), available: false})
	results, err := e.Search(context.Background(), "plugh", Options{MinScore: 2}) // impossibly high, forces lexical empty
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "notes.md", results[0].Path)
}

func TestSearchAppliesAccessBoostAndBumpsCount(t *testing.T) {
	st := openTestStore(t)
	seedChunk(t, st, "notes.md", 1, "hello world greeting text", 1000)

	e := New(st, &stubEmbedder{vector: unitVector(1), available: false})
	_, err := e.Search(context.Background(), "hello", Options{})
	require.NoError(t, err)

	counts, err := st.BumpAccessCounts(context.Background(), []store.AccessKey{{Path: "notes.md", Source: "memory", StartLine: 1}})
	require.NoError(t, err)
	require.GreaterOrEqual(t, counts[store.AccessKey{Path: "notes.md", Source: "memory", StartLine: 1}], 2)
}

func TestSearchRespectsAfterBeforeTimeFilter(t *testing.T) {
	st := openTestStore(t)
	seedChunk(t, st, "old.md", 1, "hello from the past", 1000)
	seedChunk(t, st, "new.md", 1, "hello from the future", 20_000_000_000_000)

	e := New(st, &stubEmbedder{vector: unitVector(1), available: false})
	results, err := e.Search(context.Background(), "hello", Options{After: "2400-01-01T00:00:00Z"})
	require.NoError(t, err)
	for _, r := range results {
		require.Equal(t, "new.md", r.Path)
	}
}

func TestResolveOptionsAppliesDefaults(t *testing.T) {
	opts := resolveOptions(Options{})
	require.Equal(t, defaultTokenMax, opts.TokenMax)
	require.Equal(t, defaultMinScore, opts.MinScore)
	require.GreaterOrEqual(t, opts.MaxResults, 1)
	require.LessOrEqual(t, opts.MaxResults, 20)
}
