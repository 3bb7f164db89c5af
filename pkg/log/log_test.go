package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{input: "debug", want: DebugLevel},
		{input: "INFO", want: InfoLevel},
		{input: "", want: InfoLevel},
		{input: "warn", want: WarnLevel},
		{input: "warning", want: WarnLevel},
		{input: " error ", want: ErrorLevel},
		{input: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithContainerFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	logger := WithContainer(FromContext(ContextWithCycle(context.Background(), "cycle-1"), "reconciler"), "web-1", "abcdef012345")
	logger.Warn().Msg("unhealthy")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "cycle-1", line["cycle_id"])
	assert.Equal(t, "web-1", line["container"])
	assert.Equal(t, "abcdef012345", line["container_id"])
	assert.Equal(t, "unhealthy", line["message"])
}

func TestAtSelectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	for _, lvl := range []Level{DebugLevel, InfoLevel, WarnLevel, ErrorLevel} {
		buf.Reset()
		At(&Logger, lvl).Msg("x")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, string(lvl), line["level"])
	}
}

func TestInitFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})
	defer Init(Config{Level: InfoLevel, JSONOutput: true, Output: &bytes.Buffer{}})

	Logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	Logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContextCarriesCycle(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	ctx := ContextWithCycle(context.Background(), "cycle-9")
	logger := FromContext(ctx, "health")
	logger.Info().Msg("inspected")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "health", line["component"])
	assert.Equal(t, "cycle-9", line["cycle_id"])

	buf.Reset()
	plain := FromContext(context.Background(), "health")
	plain.Info().Msg("inspected")
	assert.NotContains(t, buf.String(), "cycle_id")
}
