package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimed(t *testing.T) {
	var buf bytes.Buffer
	ctx := New(&buf, false).WithContext(context.Background())

	var inner string
	err := Timed(ctx, "resolve", func(ctx context.Context) error {
		inner = "ran"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ran", inner)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolve", entry["op"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "command finished", entry["message"])
	assert.Contains(t, entry, "duration")
}

func TestTimed_Error(t *testing.T) {
	var buf bytes.Buffer
	ctx := New(&buf, false).WithContext(context.Background())

	boom := errors.New("boom")
	err := Timed(ctx, "build", func(ctx context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "build", entry["op"])
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	buf.Reset()
	l = New(&buf, true)
	l.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
