package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.Same(t, slog.Default(), logger)
}

func TestWith_ScopesAttributes(t *testing.T) {
	// --- Arrange ---
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), base)

	// --- Act ---
	ctx = With(ctx, "dataset", "rain")
	FromContext(ctx).Info("Slot committed.")

	// --- Assert ---
	assert.Contains(t, buf.String(), "dataset=rain")
	assert.Contains(t, buf.String(), "Slot committed.")
}
