package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"github.com/xinkaiwang/helloecho/services/echoapi/client"
	"github.com/xinkaiwang/helloecho/services/echofront/internal/config"
	"github.com/xinkaiwang/helloecho/services/echofront/internal/tui"
	"github.com/xinkaiwang/helloecho/services/echofront/internal/web"
)

// injected at build time via -ldflags
var Version = "dev"

func main() {
	_ = godotenv.Load()

	app := &cli.Command{
		Name:    "echofront",
		Usage:   "browser and terminal frontends of the echo API",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-base-url",
				Usage:   "base url of the echo API",
				Sources: cli.EnvVars("API_BASE_URL"),
				Value:   config.DefaultApiBaseURL,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (fatal, error, warn, info, debug, verbose)",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   config.DefaultLogLevel,
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "log format (text, json, simple)",
				Sources: cli.EnvVars("LOG_FORMAT"),
				Value:   config.DefaultLogFormat,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "web",
				Usage: "serve the browser page",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Usage:   "listening port",
						Sources: cli.EnvVars("PORT"),
						Value:   config.DefaultPort,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					setupLogger(ctx, cfg, os.Stdout)
					return runWeb(ctx, cfg)
				},
			},
			{
				Name:  "tui",
				Usage: "run the terminal page",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "log-file",
						Usage: "write logs to this file (the terminal is owned by the UI)",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					if path := c.String("log-file"); path != "" {
						f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
						if err != nil {
							return kerror.Wrap(err, "OpenLogFileFailed", "cannot open log file", false).With("path", path)
						}
						defer f.Close()
						setupLogger(ctx, cfg, f)
					} else {
						klogging.SetDefaultLogger(klogging.NewNullLogger())
					}
					return tui.Run(ctx, client.New(cfg.ApiBaseURL))
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg := &config.Config{
		Port:       config.DefaultPort,
		ApiBaseURL: c.String("api-base-url"),
		LogLevel:   c.String("log-level"),
		LogFormat:  c.String("log-format"),
	}
	if c.IsSet("port") {
		cfg.Port = int(c.Int("port"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(ctx context.Context, cfg *config.Config, out *os.File) {
	logger := klogging.NewLogrusLogger(ctx).WithOutput(out)
	logger.SetConfig(ctx, cfg.LogLevel, cfg.LogFormat)
	klogging.SetDefaultLogger(logger)
}

func runWeb(ctx context.Context, cfg *config.Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return kerror.Wrap(err, "ListenFailed", "web server failed", false).With("addr", addr)
	}
	server := &http.Server{
		Handler:           web.NewServer(cfg.ApiBaseURL).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	klogging.Info(ctx).
		With("url", fmt.Sprintf("http://localhost:%d", cfg.Port)).
		With("apiBaseURL", cfg.ApiBaseURL).
		With("version", Version).
		Log("WebServerStarting", "")
	return web.Serve(ctx, server, ln)
}
