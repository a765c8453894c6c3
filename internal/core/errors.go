package core

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error by the subsystem that produced it.
type Kind string

const (
	KindDocumentProcessing Kind = "document_processing"
	KindEmbedding          Kind = "embedding"
	KindVectorStore        Kind = "vector_store"
	KindReranker           Kind = "reranker"
	KindGeneration         Kind = "generation"
	KindConfiguration      Kind = "configuration"
)

// Error is a domain error carrying a kind, a user-facing message and
// optional structured details.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

// NewError creates a domain error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates a domain error of the given kind with a formatted message.
// A %w verb wraps the cause for errors.Is/As chains.
func Errorf(kind Kind, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{
		Kind:    kind,
		Message: wrapped.Error(),
		cause:   errors.Unwrap(wrapped),
	}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetail attaches a structured detail and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// IsKind reports whether err is (or wraps) a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
