package klogging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
)

// TimestampFormat: ms resolution, with timezone, sorting friendly.
const TimestampFormat = "2006-01-02T15:04:05.999Z07:00"

type LogFormat uint32

const (
	TextFormat LogFormat = iota + 1
	JsonFormat
	SimpleFormat
)

func (e LogFormat) String() string {
	switch e {
	case TextFormat:
		return "Text"
	case JsonFormat:
		return "Json"
	case SimpleFormat:
		return "Simple"
	default:
		return fmt.Sprintf("%d", int(e))
	}
}

// ParseLogFormat panics with an INVALID_PARAMETER kerror on unknown input.
func ParseLogFormat(str string) LogFormat {
	switch {
	case strings.EqualFold("text", str):
		return TextFormat
	case strings.EqualFold("json", str):
		return JsonFormat
	case strings.EqualFold("simple", str):
		return SimpleFormat
	}
	panic(kerror.Create("UnknownLogFormat", "parse log format failed").
		WithErrorCode(kerror.EC_INVALID_PARAMETER).
		With("str", str))
}

type LoggerMetricsReporter interface {
	ReportLogSizeBytes(ctx context.Context, size int, logLevel, eventType string)
	ReportLogErrorCount(ctx context.Context, count int, logLevel, eventType string, isLogged bool)
}

// LogrusLogger implements Logger on top of logrus.
type LogrusLogger struct {
	ctx             context.Context
	RusLogger       *logrus.Logger
	logLevel        Level
	logFormat       LogFormat
	metricsReporter LoggerMetricsReporter
}

func NewLogrusLogger(ctx context.Context) *LogrusLogger {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logrus.New()
	log.SetFormatter(newFormatter(TextFormat))
	// level threshold is evaluated in LogrusLogger, logrus itself accepts everything.
	log.SetLevel(logrus.TraceLevel)
	return &LogrusLogger{
		ctx:       ctx,
		RusLogger: log,
		logLevel:  InfoLevel,
		logFormat: TextFormat,
	}
}

func (logger *LogrusLogger) WithOutput(w io.Writer) *LogrusLogger {
	logger.RusLogger.SetOutput(w)
	return logger
}

func (logger *LogrusLogger) WithMetricsReporter(reporter LoggerMetricsReporter) *LogrusLogger {
	logger.metricsReporter = reporter
	return logger
}

func newFormatter(format LogFormat) logrus.Formatter {
	switch format {
	case JsonFormat:
		return &logrus.JSONFormatter{TimestampFormat: TimestampFormat}
	case SimpleFormat:
		return NewSimpleFormatter()
	default:
		return &logrus.TextFormatter{
			DisableColors:   true,
			TimestampFormat: TimestampFormat,
			FullTimestamp:   true,
		}
	}
}

// SetConfig level: fatal, error, warning, info, debug, verbose. format: text, json, simple.
// Invalid input is logged and ignored.
func (logger *LogrusLogger) SetConfig(ctx context.Context, newLevelStr string, newFormatStr string) *LogrusLogger {
	defer func() {
		if r := recover(); r != nil {
			Warning(ctx).WithPanic(r).Log("UpdateLogConfigFailed", "LogConfig update failed")
		}
	}()
	newLevel := ParseLogLevel(newLevelStr)
	newFormat := ParseLogFormat(newFormatStr)
	if logger.logLevel != newLevel {
		Info(ctx).With("oldLogLevel", logger.logLevel).With("newLogLevel", newLevel).Log("UpdateLogLevel", "LogLevel updated")
		logger.logLevel = newLevel
	}
	if logger.logFormat != newFormat {
		logger.RusLogger.SetFormatter(newFormatter(newFormat))
		Info(ctx).With("oldLogFormat", logger.logFormat).With("newLogFormat", newFormat).Log("UpdateLogFormat", "LogFormat updated")
		logger.logFormat = newFormat
	}
	return logger
}

func estimateLength(obj interface{}) int {
	if str, ok := obj.(fmt.Stringer); ok {
		return len(str.String())
	}
	return len(fmt.Sprintf("%+v", obj))
}

// Log implements Logger. Metrics are reported even when shouldLog=false.
func (logger *LogrusLogger) Log(entry *LogEntry, shouldLog bool) {
	if logger.metricsReporter != nil {
		if shouldLog {
			size := len(entry.Msg) + len(entry.LogType)
			for _, item := range entry.Details {
				size += len(item.K) + estimateLength(item.V)
			}
			logger.metricsReporter.ReportLogSizeBytes(logger.ctx, size, entry.Level.String(), entry.LogType)
		}
		if NeedLog(entry.Level, WarnLevel) {
			logger.metricsReporter.ReportLogErrorCount(logger.ctx, 1, entry.Level.String(), entry.LogType, shouldLog)
		}
	}
	if !shouldLog {
		return
	}
	fields := make(logrus.Fields, len(entry.Details)+1)
	for _, item := range entry.Details {
		fields[item.K] = item.V
	}
	fields["event"] = entry.LogType
	ent := logger.RusLogger.WithFields(fields)
	ent.Time = entry.Timestamp
	ent.Log(kloggingLevel2Logrus(entry.Level), entry.Msg)
}

func kloggingLevel2Logrus(level Level) logrus.Level {
	return logrus.Level(int(level))
}

func (logger *LogrusLogger) Level() Level {
	return logger.logLevel
}
