package logctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrom_DefaultWhenEmpty(t *testing.T) {
	require.Equal(t, slog.Default(), From(context.Background()))
}

func TestIntoFrom_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil)).With(slog.String("request_id", "rid-1"))

	ctx := Into(context.Background(), l)
	From(ctx).Info("hello")

	require.Same(t, l, From(ctx))
	require.Contains(t, buf.String(), "request_id=rid-1")
	require.Contains(t, buf.String(), "msg=hello")
}

func TestFrom_NilLoggerFallsBack(t *testing.T) {
	ctx := Into(context.Background(), nil)
	require.Equal(t, slog.Default(), From(ctx))
}
