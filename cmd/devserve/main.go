package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HMasataka/devserve/internal/config"
	"github.com/HMasataka/devserve/pkg/reload"
	"github.com/HMasataka/devserve/pkg/server"
	"github.com/HMasataka/logging"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitSIGINT  = 130
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, err := config.Parse("devserve", args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		return exitFailure
	}

	logger := newLogger(flags)
	slog.SetDefault(logger)

	cfg, err := config.Resolve(flags, logger)
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return exitFailure
	}

	srv, err := server.Launch(cfg.Server, logger)
	if err != nil {
		logger.Error("could not launch server", slog.String("error", err.Error()))
		return exitFailure
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloadDone, err := startReload(ctx, cfg, logger)
	if err != nil {
		logger.Error("could not start live reload", slog.String("error", err.Error()))
		srv.Close()
		return exitFailure
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	code := exitSuccess
	select {
	case sig := <-sigCh:
		if sig == syscall.SIGINT {
			logger.Info("Caught interrupt signal (Ctrl-C). Exiting!")
			code = exitSIGINT
		} else {
			logger.Info("shutting down server...")
		}
	case <-srv.Done():
		if err := srv.Err(); err != nil {
			code = exitFailure
		}
	}

	cancel()
	<-reloadDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Debug("shutdown", slog.String("error", err.Error()))
	}

	return code
}

// newLogger builds the process logger. Debug takes precedence over quiet.
// Values stored with logging.WithValue are added to every record.
func newLogger(flags config.Flags) *slog.Logger {
	var out io.Writer = os.Stdout
	level := slog.LevelInfo

	switch {
	case flags.Debug:
		level = slog.LevelDebug
	case flags.Quiet:
		out = io.Discard
	}

	return slog.New(logging.NewHandler(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	})))
}

// startReload starts the live-reload runner when its config file is
// available. A missing default config file disables live reload; a missing
// explicitly requested one is an error.
func startReload(ctx context.Context, cfg config.Config, logger *slog.Logger) (<-chan struct{}, error) {
	done := make(chan struct{})

	rcfg, err := reload.LoadConfig(cfg.ReloadConfig)
	if err != nil {
		if !cfg.ReloadConfigExplicit && errors.Is(err, os.ErrNotExist) {
			logger.Info("live reload disabled", slog.String("config", cfg.ReloadConfig))
			close(done)
			return done, nil
		}
		return nil, err
	}

	options := reload.DefaultRunnerOptions()
	options.Logger = logger
	runner := reload.NewRunner(rcfg, options)
	runner.OnEvent(func(e reload.Event) {
		switch e.Kind {
		case reload.EventStart:
			logger.Debug("build command started", slog.String("exec", rcfg.Exec), slog.Any("watch", rcfg.Watch))
		case reload.EventExit:
			if e.Err != nil {
				logger.Debug("build command exited", slog.String("error", e.Err.Error()))
				return
			}
			logger.Info("Build command finished!")
		case reload.EventRestart:
			logger.Debug("build command restarted due to", slog.Any("files", e.Files))
		case reload.EventQuit:
			logger.Debug("live reload stopped")
		}
	})

	go func() {
		defer close(done)
		if err := runner.Run(ctx); err != nil {
			logger.Error("live reload failed", slog.String("error", err.Error()))
		}
	}()

	return done, nil
}
