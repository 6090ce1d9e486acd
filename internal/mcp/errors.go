package mcp

import (
	"context"
	"errors"
	"fmt"

	memerrors "github.com/XingxingLi2017/memory-mcp/internal/errors"
)

// JSON-RPC and memory-mcp-specific error codes surfaced to the host.
const (
	ErrCodeInvalidParams  = -32602
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
	ErrCodeTimeout        = -32001
	ErrCodePathNotAllowed = -32002
	ErrCodeStoreUnavail   = -32003
)

// MCPError is the structured error shape surfaced to the MCP host.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError builds an invalid-parameters error with msg.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError builds an unknown-tool error for name.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("tool %q not found", name)}
}

// MapError converts an internal error into an MCPError, translating known
// MemoryError codes and context errors into specific codes and falling back
// to an opaque internal error otherwise.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var me *memerrors.MemoryError
	if errors.As(err, &me) {
		return mapMemoryError(me)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "request timed out"}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "internal server error"}
	}
}

func mapMemoryError(me *memerrors.MemoryError) *MCPError {
	message := me.Message
	if me.Suggestion != "" {
		message = fmt.Sprintf("%s %s", message, me.Suggestion)
	}

	switch me.Code {
	case memerrors.CodePathNotAllowed:
		return &MCPError{Code: ErrCodePathNotAllowed, Message: message}
	case memerrors.CodeStoreUnavailable, memerrors.CodeStoreCorrupt:
		return &MCPError{Code: ErrCodeStoreUnavail, Message: message}
	case memerrors.CodeFileNotFound, memerrors.CodeFileSkipped:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
