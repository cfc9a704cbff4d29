// Command onboardee-sim simulates a device waiting to be onboarded.
//
// It announces itself over mDNS and serves configuration sessions. After a
// Connect request it pretends to join the configured network, reports the
// outcome through the device state and announces itself again with the
// same identity, the way a device does once it is on the target network.
//
// Usage:
//
//	onboardee-sim [flags]
//
// Examples:
//
//	# Simulate a lamp on the default port
//	onboardee-sim --name Lamp
//
//	# Simulate a device that rejects every network
//	onboardee-sim --fail-validation
//
//	# Simulate a device without the onboarding interface
//	onboardee-sim --incompatible
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alljoyn/services-onboarding/pkg/devconfig"
	"github.com/alljoyn/services-onboarding/pkg/discovery"
	"github.com/alljoyn/services-onboarding/pkg/log"
	"github.com/alljoyn/services-onboarding/pkg/persistence"
	"github.com/alljoyn/services-onboarding/pkg/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		opts      simOptions
		id        string
		port      uint16
		iface     string
		logLevel  string
		traceFile string
		stateFile string
	)

	cmd := &cobra.Command{
		Use:          "onboardee-sim",
		Short:        "Simulate a device waiting for Wi-Fi onboarding",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(logLevel)}))

			opts.ID = uuid.New()
			if id != "" {
				parsed, err := uuid.Parse(id)
				if err != nil {
					return err
				}
				opts.ID = parsed
			}

			var trace log.Logger = log.NoopLogger{}
			if traceFile != "" {
				fl, err := log.NewFileLogger(traceFile)
				if err != nil {
					return err
				}
				defer fl.Close()
				trace = fl
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if stateFile != "" {
				opts.Store = persistence.NewDeviceStateStore(stateFile)
			}

			adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{Interface: iface})
			sim := newSimulator(opts, adv, devconfig.ServerConfig{
				Address: ":" + portString(port),
				Trace:   trace,
				Logger:  logger,
			}, logger)
			if err := sim.restore(id != ""); err != nil {
				return err
			}
			if err := sim.Start(ctx); err != nil {
				return err
			}
			logger.Info("simulated device running",
				slog.String("id", sim.opts.ID.String()),
				slog.String("addr", sim.Addr().String()))

			<-ctx.Done()
			return sim.Stop()
		},
	}

	f := cmd.Flags()
	f.StringVar(&id, "id", "", "Device id (default: random)")
	f.StringVar(&opts.Name, "name", "Simulated Device", "Device name")
	f.StringVar(&opts.Model, "model", "onboardee-sim", "Model name")
	f.StringVar(&opts.Version, "interface-version", version.Current, "Announced onboarding interface version")
	f.Uint16Var(&port, "port", discovery.DefaultPort, "Configuration session port")
	f.StringVarP(&iface, "iface", "i", "", "Interface to announce on")
	f.DurationVar(&opts.JoinDelay, "join-delay", 2*time.Second, "Simulated time to join the configured network")
	f.BoolVar(&opts.FailValidation, "fail-validation", false, "Report every configured network as unreachable")
	f.BoolVar(&opts.Incompatible, "incompatible", false, "Do not announce the onboarding interface")
	f.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&traceFile, "trace-file", "", "Write trace events to this file")
	f.StringVar(&stateFile, "state-file", "", "Remember identity and configuration in this file")
	return cmd
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
