package klogging

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
)

// Level follows logrus numbering, without PanicLevel and with TraceLevel renamed to VerboseLevel.
type Level uint32

const (
	FatalLevel Level = iota + 1
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	VerboseLevel
)

func (e Level) String() string {
	switch e {
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	case VerboseLevel:
		return "verbose"
	default:
		return fmt.Sprintf("%d", int(e))
	}
}

// ParseLogLevel panics with an INVALID_PARAMETER kerror on unknown input.
func ParseLogLevel(str string) Level {
	switch {
	case strings.EqualFold("fatal", str):
		return FatalLevel
	case strings.EqualFold("error", str) || strings.EqualFold("err", str):
		return ErrorLevel
	case strings.EqualFold("warning", str) || strings.EqualFold("warn", str):
		return WarnLevel
	case strings.EqualFold("information", str) || strings.EqualFold("info", str):
		return InfoLevel
	case strings.EqualFold("debug", str):
		return DebugLevel
	case strings.EqualFold("verbose", str) || strings.EqualFold("trace", str):
		return VerboseLevel
	default:
		panic(kerror.Create("UnknownLogLevel", "parse log level failed").
			WithErrorCode(kerror.EC_INVALID_PARAMETER).
			With("str", str))
	}
}

func NeedLog(importance Level, threshold Level) bool {
	return int(importance) <= int(threshold)
}

type Logger interface {
	Log(entry *LogEntry, shouldLog bool)
	Level() Level
}

type loggerHolder struct {
	logger Logger
}

var currentLogger atomic.Value

// GetLogger returns the default logger, installing a BasicLogger on first use.
func GetLogger() Logger {
	if current := GetDefaultLogger(); current != nil {
		return current
	}
	basic := &BasicLogger{LogLevel: DebugLevel}
	currentLogger.Store(&loggerHolder{basic})
	return basic
}

// GetDefaultLogger returns the installed logger, nil if none yet.
func GetDefaultLogger() Logger {
	if h, ok := currentLogger.Load().(*loggerHolder); ok {
		return h.logger
	}
	return nil
}

func SetDefaultLogger(logger Logger) {
	currentLogger.Store(&loggerHolder{logger})
}

type Keypair struct {
	K string
	V interface{}
}

type LogEntry struct {
	Logger    Logger
	Level     Level
	ShouldLog bool
	LogType   string
	Msg       string
	Details   []Keypair
	Ctx       context.Context
	Timestamp time.Time
}

func NewEntry(ctx context.Context, level Level) *LogEntry {
	logger := GetLogger()
	threshold := logger.Level()
	entry := &LogEntry{
		Logger:    logger,
		Level:     level,
		ShouldLog: NeedLog(level, threshold),
		Ctx:       ctx,
		Timestamp: time.Now(),
	}
	if entry.ShouldLog {
		GetCurrentCtxInfo(ctx).VisitForward(func(k, v string) bool {
			entry.Details = append(entry.Details, Keypair{k, v})
			return true
		})
	}
	return entry
}

func (entry *LogEntry) With(k string, v interface{}) *LogEntry {
	if entry.ShouldLog {
		entry.Details = append(entry.Details, Keypair{k, v})
	}
	return entry
}

func (entry *LogEntry) WithError(err error) *LogEntry {
	if !entry.ShouldLog || err == nil {
		return entry
	}
	if ke, ok := err.(*kerror.Kerror); ok {
		for _, item := range ke.Details {
			entry.Details = append(entry.Details, Keypair{item.K, item.V})
		}
		entry.Details = append(entry.Details,
			Keypair{"errorType", ke.Type},
			Keypair{"errorMsg", ke.Msg},
			Keypair{"errorCode", ke.ErrorCode.String()},
			Keypair{"causedBy", ke.CausedByString()})
		if ke.Stack != "" {
			entry.Details = append(entry.Details, Keypair{"stack", ke.Stack})
		}
		return entry
	}
	entry.Details = append(entry.Details, Keypair{"error", err.Error()})
	return entry
}

// WithPanic records a recovered value; non-error panics get the current stack attached.
func (entry *LogEntry) WithPanic(r interface{}) *LogEntry {
	if err, ok := r.(error); ok {
		return entry.WithError(err)
	}
	return entry.With("panic", r).With("stack", kerror.GetCallStack(1))
}

// Log writes the entry. A FatalLevel entry exits the process after writing.
func (entry *LogEntry) Log(logType, msg string) {
	entry.LogType = logType
	entry.Msg = msg
	entry.Logger.Log(entry, entry.ShouldLog)
	if entry.Level == FatalLevel {
		OsExit(1)
	}
}

func (entry *LogEntry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "level=%v, event=%s, msg=%s", entry.Level.String(), entry.LogType, entry.Msg)
	for _, item := range entry.Details {
		fmt.Fprintf(&b, ", %s=%v", item.K, item.V)
	}
	return b.String()
}

func Fatal(ctx context.Context) *LogEntry {
	return NewEntry(ctx, FatalLevel)
}
func Error(ctx context.Context) *LogEntry {
	return NewEntry(ctx, ErrorLevel)
}
func Warning(ctx context.Context) *LogEntry {
	return NewEntry(ctx, WarnLevel)
}
func Info(ctx context.Context) *LogEntry {
	return NewEntry(ctx, InfoLevel)
}
func Debug(ctx context.Context) *LogEntry {
	return NewEntry(ctx, DebugLevel)
}
func Verbose(ctx context.Context) *LogEntry {
	return NewEntry(ctx, VerboseLevel)
}

/********************************* BasicLogger ************************************/

// BasicLogger prints to stdout; tests read the last line back through GetLastLoggedMessage.
type BasicLogger struct {
	LogLevel Level
}

var lastLoggedMessage atomic.Value

func (bl *BasicLogger) Log(entry *LogEntry, shouldLog bool) {
	if !shouldLog {
		return
	}
	line := entry.String()
	fmt.Println(line)
	lastLoggedMessage.Store(line)
}

func (bl *BasicLogger) Level() Level {
	return bl.LogLevel
}

func GetLastLoggedMessage() string {
	str, _ := lastLoggedMessage.Load().(string)
	return str
}

/********************************* NullLogger ************************************/

// NullLogger discards everything.
type NullLogger struct{}

func (nl *NullLogger) Log(entry *LogEntry, shouldLog bool) {}

func (nl *NullLogger) Level() Level {
	return VerboseLevel
}

func NewNullLogger() Logger {
	return &NullLogger{}
}
