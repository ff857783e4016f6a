package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("DEBUG")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestInitWriter_WritesJSONWithRFC3339Time(t *testing.T) {
	prev := L
	defer func() {
		L = prev
		slog.SetDefault(prev)
	}()

	var buf bytes.Buffer
	InitWriter(&buf, "info")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.Split(buf.Bytes(), []byte("\n"))[0], &line))
	assert.Equal(t, "Logger initialized", line["msg"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`, line["time"])
}

func TestContextRoundTrip(t *testing.T) {
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ToContext(context.Background(), l)

	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, L, FromContext(context.Background()))
}
