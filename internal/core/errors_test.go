package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewError(t *testing.T) {
	err := NewError(KindEmbedding, "model unavailable")
	if err.Error() != "model unavailable" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsKind(err, KindEmbedding) {
		t.Error("IsKind must match the error's own kind")
	}
	if IsKind(err, KindGeneration) {
		t.Error("IsKind must not match a different kind")
	}
}

func TestErrorfWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Errorf(KindVectorStore, "failed to open store: %w", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause must be reachable via errors.Is")
	}
	if !IsKind(err, KindVectorStore) {
		t.Error("kind lost by wrapping")
	}
	if want := "failed to open store: connection refused"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := NewError(KindReranker, "scorer down")
	outer := fmt.Errorf("query failed: %w", inner)

	if !IsKind(outer, KindReranker) {
		t.Error("IsKind must see through fmt.Errorf wrapping")
	}
	if IsKind(errors.New("plain"), KindReranker) {
		t.Error("plain errors have no kind")
	}
	if IsKind(nil, KindReranker) {
		t.Error("nil has no kind")
	}
}

func TestWithDetail(t *testing.T) {
	err := NewError(KindDocumentProcessing, "bad document").
		WithDetail("filename", "a.txt").
		WithDetail("size", 42)

	if err.Details["filename"] != "a.txt" {
		t.Errorf("filename detail = %v", err.Details["filename"])
	}
	if err.Details["size"] != 42 {
		t.Errorf("size detail = %v", err.Details["size"])
	}
}
