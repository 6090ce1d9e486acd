package segment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContainsCJK(t *testing.T) {
	require.False(t, ContainsCJK("hello world 123"))
	require.True(t, ContainsCJK("你好世界"))
	require.True(t, ContainsCJK("mixed 中文 text"))
}

func TestSegmentForIndexLatinUnchanged(t *testing.T) {
	s := New()
	require.Equal(t, "hello_world 123", s.SegmentForIndex("hello_world 123"))
}

func TestSegmentForQueryLatinTokenRuns(t *testing.T) {
	s := New()
	require.Equal(t, []string{"hello", "world_2"}, s.SegmentForQuery("hello, world_2!"))
}

func TestSegmentForIndexCJKProducesSpaceJoinedTerms(t *testing.T) {
	s := New()
	out := s.SegmentForIndex("你好世界")
	require.NotEmpty(t, out)
	require.Contains(t, out, " ")
}

func TestSegmentForQueryCJKProducesTokenVector(t *testing.T) {
	s := New()
	terms := s.SegmentForQuery("你好世界")
	require.NotEmpty(t, terms)
	for _, term := range terms {
		require.NotEmpty(t, term)
	}
}

func TestPackageLevelHelpersUseDefaultSegmenter(t *testing.T) {
	require.Equal(t, "plain text", SegmentForIndex("plain text"))
	require.Equal(t, []string{"plain", "text"}, SegmentForQuery("plain text"))
}
