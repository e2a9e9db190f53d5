// Command sondera is the main entry point for the Sondera enrichment server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sondera-ai/sondera/internal/app"
	"github.com/sondera-ai/sondera/internal/config"
	"github.com/sondera-ai/sondera/internal/observe"
	"github.com/sondera-ai/sondera/pkg/provider/faceattr"
	faceattrmock "github.com/sondera-ai/sondera/pkg/provider/faceattr/mock"
	"github.com/sondera-ai/sondera/pkg/provider/faceattr/remote"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sondera: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sondera: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("sondera starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	analyzer, err := buildAnalyzer(cfg, reg)
	if err != nil {
		slog.Error("failed to build faceattr provider", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, analyzer != nil)

	application, err := app.New(cfg, app.Providers{FaceAttr: analyzer})
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	// Only the log level is applied live; sampler, enrich, provider, and
	// server changes need a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			level.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level updated", "level", diff.NewLogLevel)
		}
		if diff.SamplerChanged || diff.EnrichChanged {
			slog.Warn("sampler/enrich config changed on disk — restart to apply")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		application.OnClose(func(context.Context) error {
			watcher.Stop()
			return nil
		})
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the faceattr provider factories that ship
// with Sondera into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterFaceAttr("remote", func(entry config.ProviderEntry) (faceattr.Analyzer, error) {
		var opts []remote.Option
		if entry.Timeout > 0 {
			opts = append(opts, remote.WithTimeout(entry.Timeout.Std()))
		}
		return remote.New(entry.BaseURL, entry.APIKey, opts...)
	})

	// mock returns empty detections for every frame. Useful for wiring checks
	// and load tests without a real analysis backend.
	reg.RegisterFaceAttr("mock", func(config.ProviderEntry) (faceattr.Analyzer, error) {
		return &faceattrmock.Analyzer{}, nil
	})

	for _, name := range config.ValidProviderNames["faceattr"] {
		slog.Debug("registered provider", "kind", "faceattr", "name", name)
	}
}

// buildAnalyzer instantiates the configured faceattr provider. A missing
// configuration yields a nil analyzer and the pipeline degrades the visual
// modality instead of failing.
func buildAnalyzer(cfg *config.Config, reg *config.Registry) (faceattr.Analyzer, error) {
	name := cfg.Providers.FaceAttr.Name
	if name == "" {
		return nil, nil
	}
	p, err := reg.CreateFaceAttr(cfg.Providers.FaceAttr)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Debug("provider not yet implemented — skipping", "kind", "faceattr", "name", name)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create faceattr provider %q: %w", name, err)
	}
	slog.Info("provider created", "kind", "faceattr", "name", name)
	return p, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, visual bool) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Sondera — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	faceattrName := cfg.Providers.FaceAttr.Name
	if faceattrName == "" {
		faceattrName = "(not configured)"
	}
	fmt.Printf("║  FaceAttr        : %-19s║\n", faceattrName)
	if visual {
		fmt.Printf("║  Modalities      : %-19s║\n", "audio + visual")
	} else {
		fmt.Printf("║  Modalities      : %-19s║\n", "audio only")
	}
	fmt.Printf("║  Frame check     : %-19v║\n", cfg.Enrich.ValidateFrames)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
