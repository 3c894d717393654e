package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"github.com/xinkaiwang/helloecho/libs/xklib/kmetrics"
	"github.com/xinkaiwang/helloecho/libs/xklib/ksysmetrics"
	"github.com/xinkaiwang/helloecho/services/echoapi/internal/biz"
	"github.com/xinkaiwang/helloecho/services/echoapi/internal/config"
	"github.com/xinkaiwang/helloecho/services/echoapi/internal/handler"
	"go.opencensus.io/metric/metricproducer"
	"golang.org/x/sync/errgroup"
)

// injected at build time via -ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

/*
export PORT=3001
export ALLOWED_ORIGINS=http://localhost:3000,http://127.0.0.1:3000
export ECHO_DELAY_MS=200
export METRICS_PORT=9090
export LOG_LEVEL=info
export LOG_FORMAT=json
./bin/echoapi
*/
func main() {
	// .env is optional, real env vars win
	_ = godotenv.Load()

	app := &cli.Command{
		Name:    "echoapi",
		Usage:   "hello/echo HTTP API with CORS and API docs",
		Version: fmt.Sprintf("%s (%s) %s", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "API listening port",
				Sources: cli.EnvVars("PORT"),
				Value:   config.DefaultPort,
			},
			&cli.IntFlag{
				Name:    "metrics-port",
				Usage:   "prometheus metrics port, 0 disables",
				Sources: cli.EnvVars("METRICS_PORT"),
				Value:   config.DefaultMetricsPort,
			},
			&cli.StringFlag{
				Name:    "allowed-origins",
				Usage:   "comma-separated CORS allow-list",
				Sources: cli.EnvVars("ALLOWED_ORIGINS"),
				Value:   config.DefaultAllowedOrigins,
			},
			&cli.IntFlag{
				Name:    "echo-delay-ms",
				Usage:   "artificial delay of the echo endpoint",
				Sources: cli.EnvVars("ECHO_DELAY_MS"),
				Value:   config.DefaultEchoDelayMs,
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
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := &config.Config{
				Port:           int(c.Int("port")),
				MetricsPort:    int(c.Int("metrics-port")),
				AllowedOrigins: config.ParseAllowedOrigins(c.String("allowed-origins")),
				EchoDelayMs:    int(c.Int("echo-delay-ms")),
				LogLevel:       c.String("log-level"),
				LogFormat:      c.String("log-format"),
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(ctx, cfg)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx, os.Args); err != nil {
		klogging.Fatal(context.Background()).WithError(err).Log("EchoApiExit", "echoapi failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logrusLogger := klogging.NewLogrusLogger(ctx).WithMetricsReporter(kmetrics.NewLogMetricsReporter())
	logrusLogger.SetConfig(ctx, cfg.LogLevel, cfg.LogFormat)
	klogging.SetDefaultLogger(logrusLogger)

	biz.SetVersion(Version)
	ksysmetrics.SetVersion(Version)
	klogging.Info(ctx).With("version", Version).With("commit", GitCommit).With("buildTime", BuildTime).Log("ServerStarting", "starting echoapi")

	app := biz.NewApp(cfg.EchoDelayMs)
	mainServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.NewHandler(app).Build(ctx, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers := []*http.Server{mainServer}

	if cfg.MetricsPort != 0 {
		metricsServer, err := newMetricsServer(ctx, cfg.MetricsPort, app)
		if err != nil {
			return err
		}
		servers = append(servers, metricsServer)
	}

	klogging.Info(ctx).
		With("port", cfg.Port).
		With("metricsPort", cfg.MetricsPort).
		With("allowedOrigins", strings.Join(cfg.AllowedOrigins, ",")).
		With("echoDelayMs", cfg.EchoDelayMs).
		Log("ServerConfig", "")
	klogging.Info(ctx).
		With("docs", fmt.Sprintf("http://localhost:%d%s", cfg.Port, handler.DocsPath)).
		With("hello", fmt.Sprintf("GET http://localhost:%d/api/hello", cfg.Port)).
		With("echo", fmt.Sprintf("POST http://localhost:%d/api/echo", cfg.Port)).
		Log("ServerEndpoints", "")

	return serveAll(ctx, servers...)
}

func newMetricsServer(ctx context.Context, port int, app *biz.App) (*http.Server, error) {
	pe, err := prometheus.NewExporter(prometheus.Options{
		Namespace: "echoapi",
	})
	if err != nil {
		return nil, kerror.Wrap(err, "PrometheusExporterFailed", "failed to create prometheus exporter", false)
	}
	metricproducer.GlobalManager().AddProducer(kmetrics.GetKmetricsRegistry())
	metricproducer.GlobalManager().AddProducer(ksysmetrics.GetRegistry())
	kmetrics.AddInt64DerivedGaugeWithLabels(ctx, ksysmetrics.GetRegistry(), app.InFlightEchoes,
		"echo_in_flight", "echo requests waiting on their delay", map[string]string{"service": "echoapi"})
	ksysmetrics.StartSysMetricsCollector(ctx, 15*time.Second, Version)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", pe)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// serveAll runs every server until ctx is done or one of them fails, then shuts them all down.
func serveAll(ctx context.Context, servers ...*http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			klogging.Info(ctx).With("addr", srv.Addr).Log("ServerListening", "")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return kerror.Wrap(err, "ListenFailed", "server failed", false).With("addr", srv.Addr)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		klogging.Info(ctx).Log("ServerShuttingDown", "")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				klogging.Error(ctx).WithError(err).With("addr", srv.Addr).Log("ServerShutdownFailed", "")
			}
		}
		return nil
	})
	err := g.Wait()
	klogging.Info(ctx).Log("ServerExited", "")
	return err
}
