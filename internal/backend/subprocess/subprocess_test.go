package subprocess

import (
	"context"
	"errors"
	"testing"

	"github.com/diffsec/parsentry/internal/apperrors"
)

func TestExtractJSONPrefersFencedBlock(t *testing.T) {
	text := "here is my answer:\n```json\n{\"a\":1}\n```\ndone"
	if got := extractJSON(text); got != `{"a":1}` {
		t.Errorf("extractJSON() = %q", got)
	}
}

func TestExtractJSONFallsBackToRawText(t *testing.T) {
	text := `{"a":1}`
	if got := extractJSON(text); got != text {
		t.Errorf("extractJSON() = %q, want %q", got, text)
	}
}

func TestExecuteBinaryNotFound(t *testing.T) {
	b := New(Config{Command: "parsentry-agent-that-does-not-exist"})
	_, err := b.Execute(context.Background(), "hello")
	var notFound *apperrors.BinaryNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected a BinaryNotFound error, got %v", err)
	}
}
