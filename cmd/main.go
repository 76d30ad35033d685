package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/acmacalister/peek"
)

func main() {
	var (
		// Config file (takes precedence over individual flags)
		configPath = flag.String("config", "", "path to config file (default: search ./peek.yaml, ~/.peek/config.yaml, /etc/peek/config.yaml)")
		genConfig  = flag.Bool("gen-config", false, "generate example config file and exit")

		// Individual flags (used when no config file)
		addr         = flag.String("addr", ":8080", "proxy listen address")
		mode         = flag.String("mode", "", "output mode: summary or full (overrides config)")
		outPath      = flag.String("out", "-", "flow log destination: - for stdout, or a file path")
		adminEnabled = flag.Bool("admin", false, "enable admin status endpoints")
		adminAddr    = flag.String("admin-addr", "", "admin listen address (overrides config)")
		metrics      = flag.Bool("metrics", false, "enable Prometheus /metrics on the admin server")
		verbose      = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	// Generate example config mode
	if *genConfig {
		if err := peek.WriteExampleConfig("peek.yaml"); err != nil {
			fmt.Fprintln(os.Stderr, "generate config:", err)
			os.Exit(1)
		}
		fmt.Println("Generated peek.yaml")
		return
	}

	cfg, err := peek.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	// Flags override config where given.
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *adminEnabled {
		cfg.Admin.Enabled = true
	}
	if *adminAddr != "" {
		cfg.Admin.Addr = *adminAddr
	}
	if *metrics {
		cfg.Metrics.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.Logging, *verbose)
	slog.SetDefault(logger)

	// Flow log sink
	out := os.Stdout
	if *outPath != "-" && *outPath != "" {
		f, err := os.OpenFile(*outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.Error("open flow log", "error", err, "path", *outPath)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	sink := peek.NewAsyncSink(peek.NewWriterSink(out), 0)
	defer sink.Close()

	inspector, err := peek.NewInspector(*cfg, sink)
	if err != nil {
		logger.Error("build inspector", "error", err)
		os.Exit(1)
	}
	inspector.Logger = logger

	if cfg.Metrics.Enabled {
		inspector.Metrics = peek.NewMetrics()
		logger.Info("prometheus metrics enabled at /metrics")
	}

	// Admin server
	var adminSrv *http.Server
	if cfg.Admin.Enabled {
		api := peek.NewAdminAPI(inspector, *cfg)
		api.Logger = logger

		health := peek.NewHealthChecker()
		health.SetAlive(true)
		health.SetReady(true)
		api.Health = health

		adminSrv = &http.Server{
			Addr:    cfg.Admin.Addr,
			Handler: peek.AdminServer(api, inspector.Metrics),
		}
		go func() {
			logger.Info("admin server listening", "addr", cfg.Admin.Addr)
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin server", "error", err)
			}
		}()
	}

	proxy := peek.NewProxy(*addr, inspector)
	proxy.Logger = logger

	// SIGHUP rebuilds the inspector from the config file, so mode and
	// render limits can change without dropping the listener.
	reloader := peek.WatchSIGHUP(proxy, func(context.Context) (*peek.Inspector, error) {
		newCfg, err := peek.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		ins, err := peek.NewInspector(*newCfg, sink)
		if err != nil {
			return nil, err
		}
		ins.Logger = logger
		ins.Metrics = inspector.Metrics
		return ins, nil
	}, logger)
	defer reloader.Cancel()

	// Handle shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down...")
		if adminSrv != nil {
			_ = adminSrv.Shutdown(context.Background())
		}
		_ = proxy.Shutdown(context.Background())
	}()

	logger.Info("starting proxy", "addr", *addr, "mode", cfg.Mode)
	logger.Info("plain HTTP is inspected; CONNECT tunnels pass through unobserved")

	if err := proxy.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("proxy error", "error", err)
		os.Exit(1)
	}
}

func buildLogger(cfg peek.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	var w *os.File
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log output:", err)
			w = os.Stderr
		} else {
			w = f
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
