package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/myrjola/manuscript/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))
	derived := logger.With("source", "SceneRepository")

	parent := logging.WithAttrs(context.Background(), slog.String("request_id", "r1"))
	first := logging.WithAttrs(parent, slog.String("user_id", "u1"))
	second := logging.WithAttrs(parent, slog.String("user_id", "u2"))

	derived.InfoContext(first, "first")
	require.Contains(t, buf.String(), "source=SceneRepository")
	require.Contains(t, buf.String(), "request_id=r1")
	require.Contains(t, buf.String(), "user_id=u1")

	buf.Reset()
	derived.InfoContext(second, "second")
	require.Contains(t, buf.String(), "user_id=u2")
	require.NotContains(t, buf.String(), "user_id=u1")

	buf.Reset()
	logger.Info("no context attributes")
	require.NotContains(t, buf.String(), "request_id")
}
