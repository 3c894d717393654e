package klogging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReporter struct {
	sizeReports  int
	errorReports int
}

func (r *countingReporter) ReportLogSizeBytes(ctx context.Context, size int, logLevel, eventType string) {
	r.sizeReports++
}

func (r *countingReporter) ReportLogErrorCount(ctx context.Context, count int, logLevel, eventType string, isLogged bool) {
	r.errorReports++
}

func withLogrusLogger(t *testing.T, level, format string, fn func(buf *bytes.Buffer)) {
	old := GetDefaultLogger()
	defer SetDefaultLogger(old)

	var buf bytes.Buffer
	logger := NewLogrusLogger(context.Background()).WithOutput(&buf)
	SetDefaultLogger(logger)
	logger.SetConfig(context.Background(), level, format)
	buf.Reset()
	fn(&buf)
}

func TestLogrusLoggerJson(t *testing.T) {
	withLogrusLogger(t, "info", "json", func(buf *bytes.Buffer) {
		ctx := EmbedTraceId(context.Background(), "req_7")
		Info(ctx).With("text", "ping").Log("EchoResponse", "sending echo response")

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "EchoResponse", line["event"])
		assert.Equal(t, "sending echo response", line["msg"])
		assert.Equal(t, "ping", line["text"])
		assert.Equal(t, "req_7", line["traceId"])
		assert.Equal(t, "info", line["level"])
	})
}

func TestLogrusLoggerLevelThreshold(t *testing.T) {
	withLogrusLogger(t, "warn", "text", func(buf *bytes.Buffer) {
		Info(context.Background()).Log("Hidden", "")
		assert.Empty(t, buf.String())
		Warning(context.Background()).Log("Shown", "")
		assert.Contains(t, buf.String(), "event=Shown")
	})
}

func TestLogrusLoggerSimpleFormat(t *testing.T) {
	withLogrusLogger(t, "debug", "simple", func(buf *bytes.Buffer) {
		Debug(context.Background()).With("b", 2).With("a", "x y").Log("Simple", "hello world")
		line := buf.String()
		assert.Contains(t, line, " DEBUG event=Simple msg='hello world' a='x y' b=2")
		assert.True(t, strings.HasSuffix(line, "\n"))
	})
}

func TestLogrusLoggerInvalidConfigIgnored(t *testing.T) {
	logger := NewLogrusLogger(nil)
	logger.SetConfig(context.Background(), "nope", "json")
	assert.Equal(t, InfoLevel, logger.Level())
}

func TestLogrusLoggerMetricsReporter(t *testing.T) {
	reporter := &countingReporter{}
	var buf bytes.Buffer
	logger := NewLogrusLogger(context.Background()).WithOutput(&buf).WithMetricsReporter(reporter)
	logger.Log(&LogEntry{Level: ErrorLevel, LogType: "Err", Msg: "m"}, true)
	logger.Log(&LogEntry{Level: VerboseLevel, LogType: "Noise"}, false)
	assert.Equal(t, 1, reporter.sizeReports)
	assert.Equal(t, 1, reporter.errorReports)
}
