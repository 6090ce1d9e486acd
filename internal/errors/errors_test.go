package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_PreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("disk full")

	err := Wrap(cause, CodeStoreUnavailable, "reindex failed")

	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, err))
}

func TestError_FormatsCodeAndMessage(t *testing.T) {
	err := New(CodeFileNotFound, "memory/general.md not found")
	assert.Equal(t, "FILE_NOT_FOUND: memory/general.md not found", err.Error())
}

func TestError_IncludesCauseWhenWrapped(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(cause, CodePathNotAllowed, "cannot read path")
	assert.Equal(t, "PATH_NOT_ALLOWED: cannot read path: permission denied", err.Error())
}

func TestNew_DerivesCategorySeverityRetryableFromCodeTable(t *testing.T) {
	tests := []struct {
		name              string
		code              string
		wantCategory      Category
		wantSeverity      Severity
		wantRetryable     bool
	}{
		{"store unavailable is retryable storage error", CodeStoreUnavailable, CategoryStorage, SeverityError, true},
		{"store corrupt is non-retryable critical", CodeStoreCorrupt, CategoryStorage, SeverityCritical, false},
		{"path not allowed is validation warning", CodePathNotAllowed, CategoryValidation, SeverityWarning, false},
		{"embedding failed is retryable", CodeEmbeddingFailed, CategoryEmbedding, SeverityError, true},
		{"dimension mismatch is critical, not retryable", CodeDimensionMismatch, CategoryEmbedding, SeverityCritical, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "message")
			assert.Equal(t, tt.wantCategory, err.Category)
			assert.Equal(t, tt.wantSeverity, err.Severity)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestNew_UnknownCodeDefaultsToFatalError(t *testing.T) {
	err := New("SOMETHING_UNMAPPED", "unexpected")
	assert.Equal(t, CategoryFatal, err.Category)
	assert.Equal(t, SeverityError, err.Severity)
	assert.False(t, err.Retryable)
}

func TestIs_MatchesByCodeRegardlessOfMessage(t *testing.T) {
	err1 := New(CodeFileNotFound, "a.md missing")
	err2 := New(CodeFileNotFound, "b.md missing")
	assert.True(t, errors.Is(err1, err2))
}

func TestIs_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(CodeFileNotFound, "missing")
	err2 := New(CodeStoreCorrupt, "corrupt")
	assert.False(t, errors.Is(err1, err2))
}

func TestWithDetail_AccumulatesKeyValuePairs(t *testing.T) {
	err := New(CodeFileSkipped, "skipped").
		WithDetail("path", "memory/notes.md").
		WithDetail("reason", "binary content")

	assert.Equal(t, "memory/notes.md", err.Details["path"])
	assert.Equal(t, "binary content", err.Details["reason"])
}

func TestWithSuggestion_SetsActionableHint(t *testing.T) {
	err := New(CodeCapabilityUnavailable, "fts5 unavailable").
		WithSuggestion("rebuild sqlite with the fts5 tag")

	assert.Equal(t, "rebuild sqlite with the fts5 tag", err.Suggestion)
}
