package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestInfoCarriesServiceName(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "terminal", Output: &buf})

	logg.Info(context.Background(), "hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "terminal", entry["service"])
	assert.Equal(t, "hello", entry["message"])
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "terminal", Output: &buf})

	ctx := logg.WithOperatorID(context.Background(), "op-1")
	ctx = logg.WithOrderNumber(ctx, "2025090112345")
	logg.Info(ctx, "assigned")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "op-1", entry["operator_id"])
	assert.Equal(t, "2025090112345", entry["order_number"])
}

func TestWithFieldsDoesNotMutateParentContext(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "terminal", Output: &buf})

	parent := logg.WithField(context.Background(), "a", "1")
	_ = logg.WithFields(parent, map[string]any{"b": "2"})

	logg.Info(parent, "parent")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "1", entry["a"])
	_, hasB := entry["b"]
	assert.False(t, hasB)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "terminal", Output: &buf})

	logg.Error(context.Background(), "boom", assert.AnError)

	entry := decodeLine(t, &buf)
	assert.NotEmpty(t, entry["stack"])
	assert.Equal(t, assert.AnError.Error(), entry["error"])
}
