package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alljoyn/services-onboarding/pkg/devconfig"
	"github.com/alljoyn/services-onboarding/pkg/discovery"
	"github.com/alljoyn/services-onboarding/pkg/log"
	"github.com/alljoyn/services-onboarding/pkg/onboarding"
	"github.com/alljoyn/services-onboarding/pkg/transport"
	"github.com/alljoyn/services-onboarding/pkg/wifi/nmcli"
)

// stack is the wired set of collaborators behind one command.
type stack struct {
	cfg     *Config
	logger  *slog.Logger
	wifi    *nmcli.Controller
	client  *devconfig.Client
	browser *discovery.MDNSBrowser
	engine  *onboarding.Engine

	traceFile *log.FileLogger
	metrics   *http.Server
}

func newStack(ctx context.Context, cfg *Config, logger *slog.Logger, listener onboarding.Listener) (*stack, error) {
	s := &stack{cfg: cfg, logger: logger}

	var trace log.Logger = log.NewSlogAdapter(logger)
	if cfg.TraceFile != "" {
		fl, err := log.NewFileLogger(cfg.TraceFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file: %w", err)
		}
		s.traceFile = fl
		trace = log.Tee(fl, trace)
	}

	s.wifi = nmcli.New(nmcli.Config{
		Interface: cfg.Interface,
		Logger:    logger.With(slog.String("component", "wifi")),
	})
	s.client = devconfig.NewClient(devconfig.Config{
		Transport: transport.ClientConfig{ConnectTimeout: 10 * time.Second},
		Trace:     trace,
		Logger:    logger.With(slog.String("component", "devconfig")),
	})

	browserCfg := discovery.DefaultBrowserConfig()
	browserCfg.Interface = cfg.Interface
	s.browser = discovery.NewMDNSBrowser(browserCfg, logger.With(slog.String("component", "discovery")))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	engine, err := onboarding.New(onboarding.Config{
		Joiner:           s.wifi,
		Configurator:     s.client,
		Listener:         listener,
		Logger:           logger.With(slog.String("component", "engine")),
		Trace:            trace,
		Registerer:       reg,
		PoolSize:         cfg.Engine.PoolSize,
		JoinTimeout:      cfg.Engine.JoinTimeout,
		AnnounceTimeout:  cfg.Engine.AnnounceTimeout,
		ConfigureTimeout: cfg.Engine.ConfigureTimeout,
		RestoreTimeout:   cfg.Engine.RestoreTimeout,
	})
	if err != nil {
		s.closeTrace()
		return nil, err
	}
	s.engine = engine

	if cfg.MetricsAddr != "" {
		if err := s.serveMetrics(ctx, reg); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *stack) serveMetrics(ctx context.Context, reg *prometheus.Registry) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	s.logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	return nil
}

// runFollowers feeds the engine from mDNS and from the station's
// association until ctx is done.
func (s *stack) runFollowers(ctx context.Context) {
	go func() {
		if err := s.engine.Follow(ctx, s.browser); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("announcement feed stopped", slog.Any("error", err))
		}
	}()
	go s.engine.FollowNetwork(ctx, s.wifi, s.cfg.Engine.PollInterval)
}

// Close stops the engine (which closes the configuration client), the
// metrics server and the trace file.
func (s *stack) Close() error {
	var result *multierror.Error
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.metrics.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("metrics server: %w", err))
		}
		cancel()
	}
	if err := s.closeTrace(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (s *stack) closeTrace() error {
	if s.traceFile == nil {
		return nil
	}
	s.logger.Debug("trace file closed",
		slog.String("path", s.traceFile.Path()),
		slog.Int("events", s.traceFile.Written()))
	err := s.traceFile.Close()
	s.traceFile = nil
	if err != nil {
		return fmt.Errorf("trace file: %w", err)
	}
	return nil
}
