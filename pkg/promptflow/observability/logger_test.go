package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger returns a debug-level JSON logger and a function that
// decodes every record written so far.
func captureLogger() (*slog.Logger, func(t *testing.T) []map[string]any) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func(t *testing.T) []map[string]any {
		t.Helper()
		var out []map[string]any
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}
			var rec map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &rec))
			out = append(out, rec)
		}
		return out
	}
}

func TestLogHelpers_NilLogger(t *testing.T) {
	err := errors.New("x")
	assert.NotPanics(t, func() {
		assert.Nil(t, EnrichLogger(nil, "r", 0))
		LogRunStart(nil, "r", "c")
		LogRunComplete(nil, "r", 1, 1)
		LogRunError(nil, "r", err, 1, 1)
		LogFlowYield(nil, 0, "literal", "", false)
		LogFlowSkip(nil, 0, "no branch taken")
		LogFlowExhausted(nil, 0, true)
		LogAttemptFailed(nil, "m", 0, err)
		LogRetryScheduled(nil, "abort", 0, 0, 0)
		LogRetryAborted(nil, err)
		LogRetryExhausted(nil, 3, err)
		LogJournalError(nil, "append", err)
	})
}

func TestEnrichLogger(t *testing.T) {
	logger, records := captureLogger()
	EnrichLogger(logger, "run-9", 4).Info("hello")

	recs := records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "run-9", recs[0]["run_id"])
	assert.EqualValues(t, 4, recs[0]["step"])
}

func TestLogFlowHelpers(t *testing.T) {
	logger, records := captureLogger()

	LogFlowYield(logger, 2, "template", "ask", true)
	LogFlowSkip(logger, 3, "loop body idle")
	LogFlowExhausted(logger, 5, false)

	recs := records(t)
	require.Len(t, recs, 3)

	assert.Equal(t, "flow yielded leaf", recs[0]["msg"])
	assert.Equal(t, "DEBUG", recs[0]["level"])
	assert.Equal(t, "ask", recs[0]["name"])
	assert.Equal(t, true, recs[0]["in_loop"])

	assert.Equal(t, "loop body idle", recs[1]["reason"])
	assert.EqualValues(t, 3, recs[1]["position"])

	assert.EqualValues(t, 5, recs[2]["yielded"])
	assert.Equal(t, false, recs[2]["done"])
}

func TestLogRetryHelpers(t *testing.T) {
	logger, records := captureLogger()

	LogAttemptFailed(logger, "gpt-4o", 1, errors.New("429"))
	LogRetryScheduled(logger, "retry_next_model", 0, 0, 2)
	LogRetryExhausted(logger, 3, errors.New("503"))

	recs := records(t)
	require.Len(t, recs, 3)
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, "429", recs[0]["error"])
	assert.Equal(t, "retry_next_model", recs[1]["action"])
	assert.EqualValues(t, 2, recs[1]["remaining"])
	assert.Equal(t, "ERROR", recs[2]["level"])
	assert.EqualValues(t, 3, recs[2]["budget"])
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), float64(1))
}
