package ctxutil

import (
	"context"
	"log/slog"
	"testing"
)

func TestRunID(t *testing.T) {
	ctx := context.Background()
	if got := RunIDFromContext(ctx); got != "" {
		t.Errorf("RunIDFromContext(empty) = %q, want empty", got)
	}

	ctx = WithRunID(ctx, "run-42")
	if got := RunIDFromContext(ctx); got != "run-42" {
		t.Errorf("RunIDFromContext = %q, want %q", got, "run-42")
	}
}

func TestLogger(t *testing.T) {
	if Logger(context.Background()) != slog.Default() {
		t.Error("expected default logger without context value")
	}

	l := slog.New(slog.DiscardHandler)
	if Logger(WithLogger(context.Background(), l)) != l {
		t.Error("expected context logger")
	}
}
