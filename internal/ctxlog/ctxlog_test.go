package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_DefaultsToGlobalLogger(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWith_AddsAttributes(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), base)

	// Act
	ctx, logger := With(ctx, "run_id", "r1")
	FromContext(ctx).Info("from context")
	logger.Info("returned")

	// Assert
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("run_id=r1")))
}
