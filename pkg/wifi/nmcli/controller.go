package nmcli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/alljoyn/services-onboarding/pkg/wifi"
)

// nmcli exit codes.
const (
	exitActivationFailed = 4
	exitTimeout          = 3
)

// DefaultPollInterval is how often Watch samples the current network.
const DefaultPollInterval = 2 * time.Second

// Config configures a Controller.
type Config struct {
	// Interface restricts nmcli to one wireless device. Empty lets
	// NetworkManager pick.
	Interface string

	// Runner executes nmcli. Defaults to ExecRunner.
	Runner Runner

	// Logger for diagnostics. Nil discards.
	Logger *slog.Logger
}

// Controller implements wifi.Joiner, wifi.Restorer and wifi.Scanner.
type Controller struct {
	iface  string
	runner Runner
	logger *slog.Logger

	mu        sync.Mutex
	requested string // network the user is trying to reach
	original  string
	recorded  bool
	created   []string
}

// New creates a Controller.
func New(cfg Config) *Controller {
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		iface:  cfg.Interface,
		runner: cfg.Runner,
		logger: cfg.Logger,
	}
}

// Requested returns the SSID of the network the last Join aimed for.
func (c *Controller) Requested() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requested
}

// Join associates with n, waiting at most timeout.
func (c *Controller) Join(ctx context.Context, n wifi.Network, timeout time.Duration) error {
	if err := n.Validate(); err != nil {
		if errors.Is(err, wifi.ErrInvalidWEPKey) {
			return fmt.Errorf("%w: %v", wifi.ErrJoinAuth, err)
		}
		return err
	}
	if timeout <= 0 {
		timeout = wifi.DefaultJoinTimeout
	}
	ssid := wifi.NormalizeSSID(n.SSID)

	if err := c.recordOriginal(ctx); err != nil {
		c.logger.Warn("could not record current network", slog.Any("error", err))
	}

	c.mu.Lock()
	c.requested = ssid
	c.mu.Unlock()

	current, err := c.CurrentNetwork(ctx)
	if err == nil && current == ssid {
		c.logger.Debug("already associated", slog.String("ssid", ssid))
		return nil
	}

	secs := int((timeout + time.Second - 1) / time.Second)
	args := []string{"--wait", strconv.Itoa(secs), "device", "wifi", "connect", ssid}
	if n.Auth != wifi.AuthOpen && n.Passphrase != "" {
		args = append(args, "password", n.Passphrase)
		if n.Auth == wifi.AuthWEP {
			args = append(args, "wep-key-type", "key")
		}
	}
	if c.iface != "" {
		args = append(args, "ifname", c.iface)
	}

	joinCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	out, err := c.runner.Run(joinCtx, args...)
	if err != nil {
		return classifyJoinError(joinCtx, out, err)
	}

	c.mu.Lock()
	c.created = append(c.created, ssid)
	c.mu.Unlock()

	c.logger.Info("joined network", slog.String("ssid", ssid))
	return nil
}

func classifyJoinError(ctx context.Context, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", wifi.ErrJoinTimeout, msg)
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "secrets were required") ||
		strings.Contains(lower, "no secrets") ||
		strings.Contains(lower, "invalid passphrase") ||
		strings.Contains(lower, "key-mgmt") {
		return fmt.Errorf("%w: %s", wifi.ErrJoinAuth, msg)
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		switch ec.ExitCode() {
		case exitTimeout, exitActivationFailed:
			return fmt.Errorf("%w: %s", wifi.ErrJoinTimeout, msg)
		}
	}
	return fmt.Errorf("%w: %v: %s", wifi.ErrJoinTimeout, err, msg)
}

func (c *Controller) recordOriginal(ctx context.Context) error {
	c.mu.Lock()
	done := c.recorded
	c.mu.Unlock()
	if done {
		return nil
	}
	current, err := c.CurrentNetwork(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if !c.recorded {
		c.original = current
		c.recorded = true
	}
	c.mu.Unlock()
	return nil
}

// CurrentNetwork returns the SSID the station is associated with, or "".
func (c *Controller) CurrentNetwork(ctx context.Context) (string, error) {
	args := []string{"-t", "-f", "ACTIVE,SSID", "device", "wifi", "list", "--rescan", "no"}
	if c.iface != "" {
		args = append(args, "ifname", c.iface)
	}
	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("nmcli: list: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := splitTerse(line)
		if len(fields) >= 2 && fields[0] == "yes" {
			return wifi.NormalizeSSID(fields[1]), nil
		}
	}
	return "", nil
}

// Scan rescans and returns the visible access points.
func (c *Controller) Scan(ctx context.Context) ([]wifi.ScanResult, error) {
	args := []string{"-t", "-f", "SSID,SECURITY,SIGNAL", "device", "wifi", "list", "--rescan", "yes"}
	if c.iface != "" {
		args = append(args, "ifname", c.iface)
	}
	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("nmcli: scan: %w", err)
	}

	var results []wifi.ScanResult
	for _, line := range strings.Split(string(out), "\n") {
		fields := splitTerse(line)
		if len(fields) < 3 {
			continue
		}
		signal, _ := strconv.Atoi(fields[2])
		results = append(results, wifi.ScanResult{
			SSID:         fields[0],
			Capabilities: securityToCapabilities(fields[1]),
			Level:        signal/2 - 100,
		})
	}
	return results, nil
}

// securityToCapabilities turns nmcli's "WPA1 WPA2" into the bracketed form
// wifi.AuthTypeFromCapabilities understands.
func securityToCapabilities(sec string) string {
	var b strings.Builder
	for _, f := range strings.Fields(sec) {
		if f == "WPA1" {
			f = "WPA"
		}
		b.WriteString("[" + f + "]")
	}
	return b.String()
}

// Restore reconnects to the network recorded before the first Join and
// removes the profiles created since. It is safe to call when nothing was
// joined.
func (c *Controller) Restore(ctx context.Context) error {
	c.mu.Lock()
	original, recorded := c.original, c.recorded
	created := c.created
	c.created = nil
	c.recorded = false
	c.original = ""
	c.requested = ""
	c.mu.Unlock()

	var result *multierror.Error
	for _, ssid := range created {
		if ssid == original {
			continue
		}
		if _, err := c.runner.Run(ctx, "connection", "delete", "id", ssid); err != nil {
			result = multierror.Append(result, fmt.Errorf("delete profile %q: %w", ssid, err))
		}
	}

	if recorded && original != "" {
		current, err := c.CurrentNetwork(ctx)
		if err != nil || current != original {
			if _, err := c.runner.Run(ctx, "connection", "up", "id", original); err != nil {
				result = multierror.Append(result, fmt.Errorf("reconnect %q: %w", original, err))
			}
		}
	}
	return result.ErrorOrNil()
}

// Watch polls the current network until ctx is done. It calls fn when the
// station moves onto the network the last Join asked for; other changes are
// only logged.
func (c *Controller) Watch(ctx context.Context, interval time.Duration, fn func(ssid string)) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last, _ := c.CurrentNetwork(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := c.CurrentNetwork(ctx)
			if err != nil {
				c.logger.Debug("watch poll failed", slog.Any("error", err))
				continue
			}
			if current == last {
				continue
			}
			last = current
			if requested := c.Requested(); current == "" || !wifi.SSIDEqual(current, requested) {
				c.logger.Debug("network changed",
					slog.String("ssid", current), slog.String("requested", requested))
				continue
			}
			fn(current)
		}
	}
}

// splitTerse splits an nmcli terse line on unescaped colons.
func splitTerse(line string) []string {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return nil
	}
	var fields []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case ch == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	return append(fields, cur.String())
}

var (
	_ wifi.Joiner   = (*Controller)(nil)
	_ wifi.Restorer = (*Controller)(nil)
	_ wifi.Scanner  = (*Controller)(nil)
)
