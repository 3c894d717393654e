package config

import (
	"context"
	"net/url"

	"github.com/xinkaiwang/helloecho/libs/xklib/kcommon"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

const (
	DefaultPort       = 3000
	DefaultApiBaseURL = "http://localhost:3001"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
)

// Config of the echofront commands. Port is only used by the web command.
type Config struct {
	Port       int
	ApiBaseURL string
	LogLevel   string
	LogFormat  string
}

func NewDefaultConfig() *Config {
	return &Config{
		Port:       DefaultPort,
		ApiBaseURL: DefaultApiBaseURL,
		LogLevel:   DefaultLogLevel,
		LogFormat:  DefaultLogFormat,
	}
}

// Validate returns a kerror with EC_INVALID_PARAMETER on the first invalid field.
func (cfg *Config) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return invalid("InvalidPort", "port out of range").With("port", cfg.Port)
	}
	u, err := url.Parse(cfg.ApiBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("InvalidApiBaseURL", "api base url must be an absolute http(s) url").With("apiBaseURL", cfg.ApiBaseURL)
	}
	ke := kcommon.TryCatchRun(context.Background(), func() {
		klogging.ParseLogLevel(cfg.LogLevel)
		klogging.ParseLogFormat(cfg.LogFormat)
	})
	if ke != nil {
		return ke
	}
	return nil
}

func invalid(errType, msg string) *kerror.Kerror {
	return kerror.Create(errType, msg).WithErrorCode(kerror.EC_INVALID_PARAMETER)
}
