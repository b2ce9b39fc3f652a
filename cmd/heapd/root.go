package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pior/heapd/b64"
	"github.com/pior/heapd/internal/listener"
	"github.com/pior/heapd/internal/promexporter"
	"github.com/pior/heapd/registry"
	"github.com/pior/heapd/server"
)

var (
	addr          string
	backlog       int
	base64Policy  string
	strictNumbers bool
	maxLineLength int
	maxAllocSize  uint64
	maxTotalBytes uint64
	metricsAddr   string
	logLevel      string
	logFormat     string
)

var rootCmd = &cobra.Command{
	Use:   "heapd",
	Short: "Serve named memory allocations over a line protocol",
	Long: `heapd emulates a heap allocator over TCP. Clients send one command per
line (ALLOC, WRITE, READ, FREE, LIST, EXIT) and receive one OK or ERR line
per command. Connections are served one at a time; allocations live until
freed or until the process exits.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), cmd)
	},
}

func init() {
	defaults := server.DefaultConfig()

	flags := rootCmd.Flags()
	flags.StringVar(&addr, "addr", defaults.Addr, "IPv4 address to listen on")
	flags.IntVar(&backlog, "backlog", listener.DefaultBacklog, "Listen queue length")
	flags.StringVar(&base64Policy, "base64-policy", b64.Strict.String(), "WRITE payload decoding: strict or legacy")
	flags.BoolVar(&strictNumbers, "strict-numbers", false, "Reject malformed numeric arguments with a usage error")
	flags.IntVar(&maxLineLength, "max-line-length", 0, "Close sessions sending longer request lines (0 = unbounded)")
	flags.Uint64Var(&maxAllocSize, "max-alloc-size", defaults.Registry.MaxAllocSize, "Largest single allocation in bytes (0 = unlimited)")
	flags.Uint64Var(&maxTotalBytes, "max-total-bytes", defaults.Registry.MaxTotalBytes, "Total bytes across allocations (0 = unlimited)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

func execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildConfig turns the flags into a server configuration.
func buildConfig(logger *slog.Logger) (server.Config, error) {
	policy, err := b64.ParsePolicy(base64Policy)
	if err != nil {
		return server.Config{}, err
	}
	if backlog <= 0 {
		return server.Config{}, fmt.Errorf("backlog must be positive, got %d", backlog)
	}
	if maxLineLength < 0 {
		return server.Config{}, fmt.Errorf("max-line-length must not be negative, got %d", maxLineLength)
	}

	return server.Config{
		Addr:          addr,
		Backlog:       backlog,
		Base64Policy:  policy,
		StrictNumbers: strictNumbers,
		MaxLineLength: maxLineLength,
		Registry: registry.Config{
			MaxAllocSize:  maxAllocSize,
			MaxTotalBytes: maxTotalBytes,
		},
		Logger: logger,
	}, nil
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	logger, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
	if err != nil {
		return err
	}
	cfg, err := buildConfig(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg)

	if metricsAddr != "" {
		exporter := promexporter.NewExporter(srv)
		go func() {
			logger.Info("serving metrics", "addr", metricsAddr)
			if err := exporter.ListenAndServe(ctx, metricsAddr); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	err = srv.ListenAndServe(ctx)
	if errors.Is(err, server.ErrServerClosed) {
		logger.Info("shutting down", "allocations", srv.Registry().Len())
		return nil
	}
	return err
}
