package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnippetBudgetRespectsFloorAndCeiling(t *testing.T) {
	require.Equal(t, 700, snippetBudget(100000, 1)) // ceiling
	require.Equal(t, 150, snippetBudget(1000, 20))  // floor: 50 tokens * 3
}

func TestSnippetBudgetShrinksAsResultsGrow(t *testing.T) {
	few := snippetBudget(4096, 2)
	many := snippetBudget(4096, 20)
	require.Greater(t, few, many)
}

func TestTruncateSnippetLeavesShortTextUnchanged(t *testing.T) {
	require.Equal(t, "hello", truncateSnippet("hello", 50))
}

func TestTruncateSnippetSlicesExactlyAtMaxCharsOnOverflow(t *testing.T) {
	text := strings.Repeat("a", 100)
	out := truncateSnippet(text, 10)
	require.Equal(t, strings.Repeat("a", 10), out)
}

func TestTruncateSnippetIsRuneSafe(t *testing.T) {
	text := strings.Repeat("日", 20)
	out := truncateSnippet(text, 5)
	require.Equal(t, 5, len([]rune(out)))
}
