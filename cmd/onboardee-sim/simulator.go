package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alljoyn/services-onboarding/pkg/devconfig"
	"github.com/alljoyn/services-onboarding/pkg/discovery"
	"github.com/alljoyn/services-onboarding/pkg/persistence"
	"github.com/alljoyn/services-onboarding/pkg/wifi"
	"github.com/alljoyn/services-onboarding/pkg/wire"
)

// Validation error codes reported in the device state.
const (
	codeUnreachable int16 = 1
)

type simOptions struct {
	ID             uuid.UUID
	Name           string
	Model          string
	Version        string
	JoinDelay      time.Duration
	FailValidation bool
	Incompatible   bool

	// Store keeps the configuration across restarts. Nil disables it.
	Store *persistence.DeviceStateStore
}

// simulator ties a devconfig.Device to a server and an advertiser.
type simulator struct {
	opts   simOptions
	adv    discovery.Advertiser
	device *devconfig.Device
	server *devconfig.Server
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	timer  *time.Timer
	joined chan wifi.Network
}

func newSimulator(opts simOptions, adv discovery.Advertiser, cfg devconfig.ServerConfig, logger *slog.Logger) *simulator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &simulator{
		opts:   opts,
		adv:    adv,
		logger: logger,
		ctx:    context.Background(),
		joined: make(chan wifi.Network, 1),
	}
	s.device = &devconfig.Device{
		OnConnect:  s.connect,
		OnOffboard: s.offboard,
	}
	s.server = devconfig.NewServer(cfg, s.device)
	return s
}

// restore loads the remembered identity and configuration. An identity
// given explicitly wins over the remembered one.
func (s *simulator) restore(explicitID bool) error {
	if s.opts.Store == nil {
		return nil
	}
	state, err := s.opts.Store.Load()
	if err != nil || state == nil {
		return err
	}
	if !explicitID {
		id, err := uuid.Parse(state.DeviceID)
		if err != nil {
			return fmt.Errorf("stored device id: %w", err)
		}
		s.opts.ID = id
	}
	if n := state.Network; n != nil {
		s.device.Preload(wifi.Network{SSID: n.SSID, Auth: wifi.AuthType(n.Auth), Passphrase: n.Passphrase}, n.Validated)
		s.logger.Info("restored configuration", slog.String("network", n.SSID))
	}
	return nil
}

// persist saves the identity and the current configuration.
func (s *simulator) persist(validated bool) {
	if s.opts.Store == nil {
		return
	}
	state := &persistence.DeviceState{DeviceID: s.opts.ID.String()}
	if n, ok := s.device.Network(); ok {
		state.Network = &persistence.SavedNetwork{
			SSID:       n.SSID,
			Auth:       int16(n.Auth),
			Passphrase: n.Passphrase,
			Validated:  validated,
		}
	}
	if err := s.opts.Store.Save(state); err != nil {
		s.logger.Warn("saving device state failed", slog.Any("error", err))
	}
}

// Start serves configuration sessions and announces the device.
func (s *simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start configuration server: %w", err)
	}
	if err := s.adv.Advertise(ctx, s.info()); err != nil {
		_ = s.server.Stop()
		return fmt.Errorf("failed to advertise: %w", err)
	}
	s.persist(s.device.State(ctx).State == wire.DeviceConfiguredValidated)
	return nil
}

// Stop withdraws the announcement and stops the server.
func (s *simulator) Stop() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	advErr := s.adv.Stop()
	if err := s.server.Stop(); err != nil {
		return err
	}
	return advErr
}

// Addr returns the configuration server address.
func (s *simulator) Addr() net.Addr {
	return s.server.Addr()
}

func (s *simulator) info() *discovery.AnnouncementInfo {
	info := &discovery.AnnouncementInfo{
		Port:       s.port(),
		DeviceID:   s.opts.ID,
		DeviceName: s.opts.Name,
		Model:      s.opts.Model,
		Version:    s.opts.Version,
	}
	if !s.opts.Incompatible {
		info.Interfaces = []string{discovery.InterfaceOnboarding}
	}
	return info
}

func (s *simulator) port() uint16 {
	addr, ok := s.server.Addr().(*net.TCPAddr)
	if !ok {
		return discovery.DefaultPort
	}
	return uint16(addr.Port)
}

// connect pretends to join n after the join delay.
func (s *simulator) connect(n wifi.Network) {
	s.logger.Info("connect requested", slog.String("network", n.String()))
	s.persist(false)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.JoinDelay, func() { s.finishJoin(n) })
}

func (s *simulator) finishJoin(n wifi.Network) {
	if s.opts.FailValidation {
		s.device.SetValidated(false, codeUnreachable, "network "+n.SSID+" unreachable")
		s.logger.Warn("simulated join failed", slog.String("network", n.String()))
		return
	}
	s.device.SetValidated(true, 0, "")
	s.persist(true)

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	// Same identity, new network.
	if err := s.adv.Advertise(ctx, s.info()); err != nil {
		s.logger.Error("re-announce failed", slog.Any("error", err))
		return
	}
	s.logger.Info("joined target network", slog.String("network", n.String()))

	select {
	case s.joined <- n:
	default:
	}
}

func (s *simulator) offboard() {
	s.logger.Info("offboarded")
	s.persist(false)

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}

func portString(p uint16) string {
	return strconv.Itoa(int(p))
}
