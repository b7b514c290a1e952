package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/docconvert/internal/container"
	"github.com/pdiddy/docconvert/internal/convert"
	"github.com/pdiddy/docconvert/internal/history"
	"github.com/pdiddy/docconvert/internal/server"
	"github.com/pdiddy/docconvert/pkg/types"
)

const defaultShutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversion HTTP server",
	Long: `Serve starts the HTTP API:

  POST /convert   multipart "file" + "conversion" (word_to_pdf | pdf_to_word)
  POST /lock      multipart "file" + "password"
  GET  /healthz   liveness and version
  GET  /metrics   Prometheus metrics

SIGINT or SIGTERM stops accepting connections and waits for in-flight
conversions up to server.shutdown_timeout.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "listen address (default :5000)")
	f.String("backend", "", "conversion backend: local or container")
	f.String("image", "", "tools container image for the container backend")
	f.String("work-root", "", "parent directory for per-request scratch space")
	f.Int64("max-upload-bytes", 0, "reject request bodies larger than this (0 = no limit)")
	f.Int64("max-concurrent", 0, "maximum concurrent conversions (0 = no limit)")
	f.Duration("timeout", 0, "per-conversion timeout (0 = none)")
	f.String("history-db", "", "SQLite file for the conversion journal (empty = disabled)")

	_ = viper.BindPFlag("server.addr", f.Lookup("addr"))
	_ = viper.BindPFlag("conversion.backend", f.Lookup("backend"))
	_ = viper.BindPFlag("conversion.image", f.Lookup("image"))
	_ = viper.BindPFlag("conversion.work_root", f.Lookup("work-root"))
	_ = viper.BindPFlag("server.max_upload_bytes", f.Lookup("max-upload-bytes"))
	_ = viper.BindPFlag("server.max_concurrent", f.Lookup("max-concurrent"))
	_ = viper.BindPFlag("conversion.timeout", f.Lookup("timeout"))
	_ = viper.BindPFlag("history.db_path", f.Lookup("history-db"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := newRunner(ctx, cfg.Conversion)
	if err != nil {
		return err
	}

	var recorder history.Recorder = history.Nop{}
	if cfg.History.DBPath != "" {
		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
		logger.Info("history journal enabled", "path", cfg.History.DBPath)
	}

	srv := server.New(server.Config{
		ServerConfig: cfg.Server,
		WorkRoot:     cfg.Conversion.WorkRoot,
		Version:      version,
	}, server.Deps{
		Converter: convert.NewDispatcher(runner, cfg.Conversion),
		History:   recorder,
		Logger:    logger,
	})

	logger.Info("starting docconvert",
		"version", version,
		"backend", string(cfg.Conversion.Backend),
		"max_concurrent", cfg.Server.MaxConcurrent,
		"max_upload_bytes", cfg.Server.MaxUploadBytes,
		"api_key", cfg.Server.APIKey != "",
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// newRunner selects where the conversion tools execute.
func newRunner(ctx context.Context, cfg types.ConversionConfig) (convert.Runner, error) {
	switch cfg.Backend {
	case types.BackendLocal, "":
		return convert.LocalRunner{}, nil
	case types.BackendContainer:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Using %s with image %s\n", rt.Name(), cfg.Image)
		r, err := convert.NewContainerRunner(ctx, rt, cfg.Image)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported conversion backend %q", cfg.Backend)
	}
}
