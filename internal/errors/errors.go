// Package errors defines the stable error codes surfaced by rbls
// commands and the language server.
package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseFailed indicates a source file could not be parsed at all.
	// Partial parses with error nodes index what they can and do not
	// produce this code.
	ParseFailed ErrorCode = "PARSE_FAILED"
	// ParserUnavailable indicates this build has no tree-sitter support
	ParserUnavailable ErrorCode = "PARSER_UNAVAILABLE"
	// WorkspaceNotFound indicates the workspace root does not exist
	WorkspaceNotFound ErrorCode = "WORKSPACE_NOT_FOUND"
	// SymbolNotFound indicates no entry exists under the requested name
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// AliasChainTooDeep indicates an alias chain exceeded the depth bound
	AliasChainTooDeep ErrorCode = "ALIAS_CHAIN_TOO_DEEP"
	// StorageUnavailable indicates the snapshot database cannot be opened
	StorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	// SnapshotCorrupt indicates a persisted snapshot failed to decode
	SnapshotCorrupt ErrorCode = "SNAPSHOT_CORRUPT"
	// ConfigInvalid indicates the configuration failed to load or validate
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ExportFailed indicates an index export could not be written
	ExportFailed ErrorCode = "EXPORT_FAILED"
	// ServerNotInitialized indicates a request arrived before initialize
	ServerNotInitialized ErrorCode = "SERVER_NOT_INITIALIZED"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error carries a stable code alongside the human message and cause.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates an Error with the given code, message and cause.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates an Error with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the stable code from err, or InternalError for plain
// errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return InternalError
}
