package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestHandlerLevel(t *testing.T) {
	h := NewHandler("test")
	ctx := context.Background()

	// Debug is the default floor until configuration raises it.
	if !h.Enabled(ctx, slog.LevelDebug) {
		t.Error("default handler must accept debug records")
	}

	h.SetLevel(slog.LevelWarn)
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info must be suppressed after raising the level to warn")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("error must stay enabled")
	}

	// Derived handlers share the configured level.
	derived := h.WithAttrs([]slog.Attr{slog.String("k", "v")})
	if derived.Enabled(ctx, slog.LevelDebug) {
		t.Error("derived handler must inherit the raised level")
	}
	h.SetLevel(slog.LevelDebug)
	if !derived.Enabled(ctx, slog.LevelDebug) {
		t.Error("level changes must reach derived handlers")
	}
}
