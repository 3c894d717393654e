package config

import (
	"context"
	"strings"

	"github.com/xinkaiwang/helloecho/libs/xklib/kcommon"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

const (
	DefaultPort           = 3001
	DefaultMetricsPort    = 9090
	DefaultEchoDelayMs    = 200
	DefaultAllowedOrigins = "http://localhost:3000,http://127.0.0.1:3000"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
)

// Config of the echoapi service. MetricsPort=0 disables the metrics server.
type Config struct {
	Port           int
	MetricsPort    int
	AllowedOrigins []string
	EchoDelayMs    int
	LogLevel       string
	LogFormat      string
}

func NewDefaultConfig() *Config {
	return &Config{
		Port:           DefaultPort,
		MetricsPort:    DefaultMetricsPort,
		AllowedOrigins: ParseAllowedOrigins(DefaultAllowedOrigins),
		EchoDelayMs:    DefaultEchoDelayMs,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
	}
}

// ParseAllowedOrigins splits a comma-separated list. Entries are trimmed, a trailing "/" is dropped, empties are skipped.
func ParseAllowedOrigins(str string) []string {
	origins := []string{}
	for _, item := range strings.Split(str, ",") {
		item = strings.TrimSuffix(strings.TrimSpace(item), "/")
		if item != "" {
			origins = append(origins, item)
		}
	}
	return origins
}

// Validate returns a kerror with EC_INVALID_PARAMETER on the first invalid field.
func (cfg *Config) Validate() error {
	if err := ValidatePort("port", cfg.Port, false); err != nil {
		return err
	}
	if err := ValidatePort("metricsPort", cfg.MetricsPort, true); err != nil {
		return err
	}
	if cfg.EchoDelayMs < 0 {
		return invalid("InvalidEchoDelay", "echo delay must not be negative").With("echoDelayMs", cfg.EchoDelayMs)
	}
	if len(cfg.AllowedOrigins) == 0 {
		return invalid("InvalidAllowedOrigins", "at least one allowed origin is required")
	}
	return ValidateLogConfig(cfg.LogLevel, cfg.LogFormat)
}

func ValidatePort(name string, port int, zeroAllowed bool) error {
	if port == 0 && zeroAllowed {
		return nil
	}
	if port <= 0 || port > 65535 {
		return invalid("InvalidPort", "port out of range").With("name", name).With("port", port)
	}
	return nil
}

// ValidateLogConfig checks level/format the same way the logger parses them.
func ValidateLogConfig(level, format string) error {
	ke := kcommon.TryCatchRun(context.Background(), func() {
		klogging.ParseLogLevel(level)
		klogging.ParseLogFormat(format)
	})
	if ke != nil {
		return ke
	}
	return nil
}

func invalid(errType, msg string) *kerror.Kerror {
	return kerror.Create(errType, msg).WithErrorCode(kerror.EC_INVALID_PARAMETER)
}
