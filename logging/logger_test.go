package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*SimLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf})
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSimLogger_ContextAttributes(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.WithComponent("orchestrator").WithSimulation("sim-1").WithContext("round", 3).Info("exchange.start", "initiator", "Alice")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "exchange.start", lines[0]["msg"])
	assert.Equal(t, "orchestrator", lines[0]["component"])
	assert.Equal(t, "sim-1", lines[0]["simulation_id"])
	assert.Equal(t, float64(3), lines[0]["round"])
	assert.Equal(t, "Alice", lines[0]["initiator"])
}

func TestSimLogger_WithDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	_ = l.WithContext("k", "v")
	l.Info("plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "k")
}

func TestSimLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "w", lines[0]["msg"])
	assert.Equal(t, "e", lines[1]["msg"])
}

func TestSimLogger_LogLLMCall(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.LogLLMCall("mock", 12, time.Millisecond, true, nil)
	l.LogLLMCall("mock", 0, time.Millisecond, false, errors.New("boom"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "capability.call", lines[0]["msg"])
	assert.Equal(t, "capability.call.failed", lines[1]["msg"])
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestSimLogger_LogExchange(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.LogExchange("Alice", "Bob", "pending", time.Millisecond)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "exchange.recorded", lines[0]["msg"])
	assert.Equal(t, "Alice", lines[0]["initiator"])
	assert.Equal(t, "pending", lines[0]["outcome"])
}

func TestSimLogger_StartTimer(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	done := l.StartTimer("runner.finished")
	done()

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "runner.finished", lines[0]["msg"])
	assert.Contains(t, lines[0], "duration")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("nonsense"))
}

func TestOrNoOp(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	l, _ := newBufferLogger(LogLevelInfo)
	assert.Same(t, l, OrNoOp(l))
}
