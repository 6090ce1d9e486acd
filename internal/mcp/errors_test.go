package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memerrors "github.com/XingxingLi2017/memory-mcp/internal/errors"
)

func TestMapError_NilReturnsNil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_PathNotAllowed(t *testing.T) {
	err := memerrors.New(memerrors.CodePathNotAllowed, "path escapes workspace")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodePathNotAllowed, result.Code)
	assert.Contains(t, result.Message, "path escapes workspace")
}

func TestMapError_StoreUnavailableAndCorrupt(t *testing.T) {
	for _, code := range []string{memerrors.CodeStoreUnavailable, memerrors.CodeStoreCorrupt} {
		err := memerrors.New(code, "db busy")
		result := MapError(err)
		require.NotNil(t, result)
		assert.Equal(t, ErrCodeStoreUnavail, result.Code)
	}
}

func TestMapError_FileNotFoundAndSkippedMapToInvalidParams(t *testing.T) {
	for _, code := range []string{memerrors.CodeFileNotFound, memerrors.CodeFileSkipped} {
		err := memerrors.New(code, "missing")
		result := MapError(err)
		require.NotNil(t, result)
		assert.Equal(t, ErrCodeInvalidParams, result.Code)
	}
}

func TestMapError_UnknownMemoryErrorCodeFallsBackToInternal(t *testing.T) {
	err := memerrors.New(memerrors.CodeFatalInit, "init failed")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
}

func TestMapError_AppendsSuggestionToMessage(t *testing.T) {
	err := memerrors.New(memerrors.CodeCapabilityUnavailable, "fts5 unavailable").
		WithSuggestion("rebuild with the fts5 tag")

	result := MapError(err)

	require.NotNil(t, result)
	assert.Contains(t, result.Message, "fts5 unavailable")
	assert.Contains(t, result.Message, "rebuild with the fts5 tag")
}

func TestMapError_ContextDeadlineExceededMapsToTimeout(t *testing.T) {
	result := MapError(context.DeadlineExceeded)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
}

func TestMapError_ContextCanceledMapsToTimeout(t *testing.T) {
	result := MapError(context.Canceled)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
}

func TestMapError_GenericErrorMapsToInternalError(t *testing.T) {
	result := MapError(errors.New("something unexpected"))

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Equal(t, "internal server error", result.Message)
}

func TestNewInvalidParamsError_SetsCodeAndMessage(t *testing.T) {
	err := NewInvalidParamsError("query must not be empty")
	assert.Equal(t, ErrCodeInvalidParams, err.Code)
	assert.Equal(t, "query must not be empty", err.Message)
}

func TestNewMethodNotFoundError_IncludesToolName(t *testing.T) {
	err := NewMethodNotFoundError("memory_unknown")
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, "memory_unknown")
}

func TestMCPError_ErrorStringIncludesCodeAndMessage(t *testing.T) {
	err := &MCPError{Code: ErrCodeInternalError, Message: "boom"}
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "-32603")
}
