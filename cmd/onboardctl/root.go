package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alljoyn/services-onboarding/pkg/onboarding"
	"github.com/alljoyn/services-onboarding/pkg/persistence"
	"github.com/alljoyn/services-onboarding/pkg/version"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath  string
	logLevel    string
	iface       string
	traceFile   string
	metricsAddr string
	stateFile   string

	cfg    *Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "onboardctl",
		Short:         "Onboard devices onto a Wi-Fi network",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Configuration file (.yaml or .toml)")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVarP(&a.iface, "iface", "i", "", "Wireless interface")
	flags.StringVar(&a.traceFile, "trace-file", "", "Write trace events to this file")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.StringVar(&a.stateFile, "state-file", "", "Record onboarded devices in this file")

	root.AddCommand(
		newScanCmd(a),
		newCurrentCmd(a),
		newConnectCmd(a),
		newOnboardCmd(a),
		newOffboardCmd(a),
		newDevicesCmd(a),
		newDiscoverCmd(a),
		newStatusCmd(a),
		newShellCmd(a),
		newTraceCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads the config file and lets explicitly set flags override it.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("iface") {
		cfg.Interface = a.iface
	}
	if flags.Changed("trace-file") {
		cfg.TraceFile = a.traceFile
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = a.metricsAddr
	}
	if flags.Changed("state-file") {
		cfg.StateFile = a.stateFile
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = setupLogging(level)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s (use: debug, info, warn, error)", s)
	}
}

func setupLogging(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if level == slog.LevelDebug {
		opts.AddSource = true
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// store returns the device registry, nil when no state file is configured.
func (a *app) store() *persistence.ControllerStateStore {
	if a.cfg.StateFile == "" {
		return nil
	}
	return persistence.NewControllerStateStore(a.cfg.StateFile)
}

// withStack builds the collaborators, runs fn and tears everything down.
func (a *app) withStack(ctx context.Context, listener onboarding.Listener, fn func(*stack) error) error {
	s, err := newStack(ctx, a.cfg, a.logger, listener)
	if err != nil {
		return err
	}
	runErr := fn(s)
	if err := s.Close(); err != nil {
		a.logger.Warn("shutdown", slog.Any("error", err))
	}
	return runErr
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the program and onboarding interface versions",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "onboardctl %s (interface %s)\n", version.Build, version.Current)
		},
	}
}
