package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/desertwitch/rpcfs"
	"github.com/desertwitch/rpcfs/internal/configuration"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

const (
	stackTraceBufMax = 1 << 24

	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string
)

func setupLogging(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()
}

// loadConfig merges the environment (and environment files) with the flags
// that were explicitly set, flags taking precedence.
func loadConfig(f *cliFlags) (*configuration.Config, error) {
	cfg, err := configuration.NewHandler(&configuration.GodotenvProvider{}).Load(f.envFiles...)
	if err != nil {
		return nil, err
	}

	f.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("(config) %w", err)
	}

	return cfg, nil
}

//nolint:funlen
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	setupLogging(stderr, slog.LevelInfo)

	f, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		slog.Error("Invalid command line", "err", err)

		return exitUsage
	}

	if f.version {
		fmt.Fprintln(stdout, "rpcfs", Version)

		return exitOK
	}

	cfg, err := loadConfig(f)
	if err != nil {
		slog.Error("Failed to load the configuration.", "err", err)

		return exitUsage
	}

	level, _ := cfg.Level()
	setupLogging(stderr, level)

	if len(f.operation) == 0 {
		slog.Error("No operation given.")
		f.usage()

		return exitUsage
	}

	reg := prometheus.NewRegistry()
	defer writeMetrics(cfg.MetricsFile, reg)

	decide, err := buildDecision(cfg, stdin, stderr, reg, slog.Default())
	if err != nil {
		slog.Error("Failed to establish the access policy.", "err", err)

		return exitError
	}

	opts := []rpcfs.Option{rpcfs.WithLogger(slog.Default())}
	if cfg.ResolveSymlinks {
		opts = append(opts, rpcfs.WithSymlinkResolution())
	}

	sandbox, err := rpcfs.New(cfg.Root, decide, opts...)
	if err != nil {
		slog.Error("Failed to establish the sandbox.", "root", cfg.Root, "err", err)

		return exitError
	}

	op, opArgs := f.operation[0], f.operation[1:]

	result, err := sandbox.Invoke(ctx, op, opArgs, rpcfs.InvokeOptions{
		Recursive: f.recursive,
		Force:     f.force,
	})
	if err != nil {
		attrs := []any{"op", op, "err", err}

		var permErr *rpcfs.PermissionError
		if errors.As(err, &permErr) {
			attrs = append(attrs, "code", permErr.Code())
		}
		slog.Error("Operation failed.", attrs...)

		return exitError
	}

	if err := printResult(stdout, result); err != nil {
		slog.Error("Failed to print the result.", "op", op, "err", err)

		return exitError
	}

	return exitOK
}

func writeMetrics(path string, reg *prometheus.Registry) {
	if path == "" {
		return
	}

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		slog.Error("Failed to write the metrics file.", "path", path, "err", err)
	}
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandlers(cancel)

	ExitCode = run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}
