package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, chunkSize int) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "memory.db"), chunkSize)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleVector(seed float32) []float32 {
	v := make([]float32, Dimensions)
	for i := range v {
		v[i] = seed
	}
	normalizeL2(v)
	return v
}

func TestOpenCreatesSchemaAndIsReusable(t *testing.T) {
	s := openTestStore(t, 512)
	require.True(t, s.FTSAvailable())
	require.Equal(t, 512, s.ChunkSize())

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, 0, stats.Files)
}

func TestReindexFileInsertsChunksAndFTSRows(t *testing.T) {
	s := openTestStore(t, 512)
	ctx := context.Background()

	file := File{Path: "notes.md", Source: "memory", Hash: "abc123", Mtime: 1000, Size: 42}
	chunks := []Chunk{
		{ID: "c1", Path: file.Path, Source: file.Source, StartLine: 1, EndLine: 3, Hash: "h1", Text: "hello world"},
	}
	lexical := []LexicalEntry{{ChunkID: "c1", SegmentedText: "hello world"}}

	require.NoError(t, s.ReindexFile(ctx, file, chunks, lexical, s.FTSAvailable()))

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Files)
	require.Equal(t, 1, stats.Chunks)
	require.Equal(t, 1, stats.MemoryFiles)

	hits, err := s.SearchFTS(ctx, "hello", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "c1", hits[0].ID)
}

func TestReindexFileReplacesOldChunks(t *testing.T) {
	s := openTestStore(t, 512)
	ctx := context.Background()

	file := File{Path: "notes.md", Source: "memory", Hash: "abc123", Mtime: 1000, Size: 42}
	first := []Chunk{{ID: "c1", Path: file.Path, Source: file.Source, StartLine: 1, EndLine: 3, Hash: "h1", Text: "alpha"}}
	require.NoError(t, s.ReindexFile(ctx, file, first, nil, false))

	file.Hash = "def456"
	second := []Chunk{{ID: "c2", Path: file.Path, Source: file.Source, StartLine: 1, EndLine: 5, Hash: "h2", Text: "beta"}}
	require.NoError(t, s.ReindexFile(ctx, file, second, nil, false))

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Files)
	require.Equal(t, 1, stats.Chunks)

	hash, ok, err := s.FileHash(file.Path, file.Source)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "def456", hash)
}

func TestDeleteFilesNotInRemovesStaleFiles(t *testing.T) {
	s := openTestStore(t, 512)
	ctx := context.Background()

	for i, path := range []string{"a.md", "b.md"} {
		f := File{Path: path, Source: "memory", Hash: "h", Mtime: int64(i), Size: 1}
		c := []Chunk{{ID: path + "-c1", Path: path, Source: "memory", StartLine: 1, EndLine: 1, Hash: "h", Text: "x"}}
		require.NoError(t, s.ReindexFile(ctx, f, c, nil, false))
	}

	deleted, err := s.DeleteFilesNotIn(ctx, "memory", map[string]bool{"a.md": true}, false)
	require.NoError(t, err)
	require.Equal(t, []string{"b.md"}, deleted)

	stats, err := s.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Files)
	require.Equal(t, 1, stats.Chunks)
}

func TestInsertEmbeddingsRejectsWrongDimension(t *testing.T) {
	s := openTestStore(t, 512)
	ctx := context.Background()

	err := s.InsertEmbeddings(ctx, []EmbeddingWrite{{ChunkID: "c1", TextHash: "h1", Vector: []float32{1, 2, 3}}})
	require.Error(t, err)
	require.ErrorAs(t, err, &ErrDimensionMismatch{})
}

func TestInsertEmbeddingsAndSearchVector(t *testing.T) {
	s := openTestStore(t, 512)
	ctx := context.Background()

	file := File{Path: "notes.md", Source: "memory", Hash: "h", Mtime: 1, Size: 1}
	chunk := Chunk{ID: "c1", Path: file.Path, Source: file.Source, StartLine: 1, EndLine: 1, Hash: "h1", Text: "hello"}
	require.NoError(t, s.ReindexFile(ctx, file, []Chunk{chunk}, nil, false))

	vec := sampleVector(1)
	require.NoError(t, s.InsertEmbeddings(ctx, []EmbeddingWrite{{ChunkID: "c1", TextHash: "h1", Vector: vec}}))
	require.True(t, s.VecAvailable())

	hits, err := s.SearchVector(ctx, vec, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "c1", hits[0].ID)

	cached, ok, err := s.EmbeddingCacheGet("h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cached, Dimensions)
}

func TestEmbeddingCacheSurvivesRebuild(t *testing.T) {
	s := openTestStore(t, 512)
	ctx := context.Background()

	vec := sampleVector(2)
	require.NoError(t, s.InsertEmbeddings(ctx, []EmbeddingWrite{{ChunkID: "c1", TextHash: "stable-hash", Vector: vec}}))

	require.NoError(t, s.rebuild(1024))

	cached, ok, err := s.EmbeddingCacheGet("stable-hash")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cached, Dimensions)
	require.Equal(t, 1024, s.ChunkSize())
}

func TestSearchSubstringFallback(t *testing.T) {
	s := openTestStore(t, 512)
	ctx := context.Background()

	file := File{Path: "notes.md", Source: "memory", Hash: "h", Mtime: 1, Size: 1}
	chunk := Chunk{ID: "c1", Path: file.Path, Source: file.Source, StartLine: 1, EndLine: 1, Hash: "h1", Text: "the quick brown fox"}
	require.NoError(t, s.ReindexFile(ctx, file, []Chunk{chunk}, nil, false))

	hits, err := s.SearchSubstring(ctx, "%quick%", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "c1", hits[0].ID)
}

func TestBumpAccessCounts(t *testing.T) {
	s := openTestStore(t, 512)
	ctx := context.Background()

	file := File{Path: "notes.md", Source: "memory", Hash: "h", Mtime: 1, Size: 1}
	chunk := Chunk{ID: "c1", Path: file.Path, Source: file.Source, StartLine: 1, EndLine: 1, Hash: "h1", Text: "x"}
	require.NoError(t, s.ReindexFile(ctx, file, []Chunk{chunk}, nil, false))

	key := AccessKey{Path: "notes.md", Source: "memory", StartLine: 1}
	counts, err := s.BumpAccessCounts(ctx, []AccessKey{key, key})
	require.NoError(t, err)
	require.Equal(t, 2, counts[key])
}
