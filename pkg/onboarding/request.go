package onboarding

import (
	"errors"
	"fmt"
	"time"

	"github.com/alljoyn/services-onboarding/pkg/wifi"
)

// Default per-phase timeouts.
const (
	DefaultJoinTimeout     = wifi.DefaultJoinTimeout
	DefaultAnnounceTimeout = 25 * time.Second
)

// Request describes one provisioning run. Zero timeouts take the engine
// defaults.
type Request struct {
	Onboardee wifi.Network `yaml:"onboardee" toml:"onboardee"`
	Target    wifi.Network `yaml:"target" toml:"target"`

	OnboardeeJoinTimeout     time.Duration `yaml:"onboardee_join_timeout" toml:"onboardee_join_timeout"`
	OnboardeeAnnounceTimeout time.Duration `yaml:"onboardee_announce_timeout" toml:"onboardee_announce_timeout"`
	TargetJoinTimeout        time.Duration `yaml:"target_join_timeout" toml:"target_join_timeout"`
	TargetAnnounceTimeout    time.Duration `yaml:"target_announce_timeout" toml:"target_announce_timeout"`
}

// Validate checks the request. WEP keys are checked when the network is
// used, so a bad target key surfaces as a configuration failure.
func (r Request) Validate() error {
	if wifi.NormalizeSSID(r.Onboardee.SSID) == "" {
		return fmt.Errorf("onboardee: %w", wifi.ErrEmptySSID)
	}
	if wifi.NormalizeSSID(r.Target.SSID) == "" {
		return fmt.Errorf("target: %w", wifi.ErrEmptySSID)
	}
	if r.OnboardeeJoinTimeout < 0 || r.OnboardeeAnnounceTimeout < 0 ||
		r.TargetJoinTimeout < 0 || r.TargetAnnounceTimeout < 0 {
		return errors.New("negative timeout")
	}
	return nil
}

// withDefaults fills zero timeouts.
func (r Request) withDefaults(join, announce time.Duration) Request {
	if r.OnboardeeJoinTimeout == 0 {
		r.OnboardeeJoinTimeout = join
	}
	if r.OnboardeeAnnounceTimeout == 0 {
		r.OnboardeeAnnounceTimeout = announce
	}
	if r.TargetJoinTimeout == 0 {
		r.TargetJoinTimeout = join
	}
	if r.TargetAnnounceTimeout == 0 {
		r.TargetAnnounceTimeout = announce
	}
	return r
}

// network returns the network joined in phase p.
func (r Request) network(p Phase) wifi.Network {
	if p == PhaseTarget {
		return r.Target
	}
	return r.Onboardee
}

func (r Request) joinTimeout(p Phase) time.Duration {
	if p == PhaseTarget {
		return r.TargetJoinTimeout
	}
	return r.OnboardeeJoinTimeout
}

func (r Request) announceTimeout(p Phase) time.Duration {
	if p == PhaseTarget {
		return r.TargetAnnounceTimeout
	}
	return r.OnboardeeAnnounceTimeout
}
