package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alljoyn/services-onboarding/pkg/onboarding"
	"github.com/alljoyn/services-onboarding/pkg/persistence"
	"github.com/alljoyn/services-onboarding/pkg/wifi"
)

// networkFlags binds the flags describing one network.
type networkFlags struct {
	prefix     string
	ssid       string
	auth       string
	passphrase string
}

func (f *networkFlags) register(cmd *cobra.Command, prefix, what string) {
	f.prefix = prefix
	cmd.Flags().StringVar(&f.ssid, prefix+"ssid", "", what+" SSID")
	cmd.Flags().StringVar(&f.auth, prefix+"auth", "", what+" auth type (OPEN, WEP, WPA2_CCMP, ...)")
	cmd.Flags().StringVar(&f.passphrase, prefix+"passphrase", "", what+" passphrase")
}

// apply overrides n with the flags that were set.
func (f *networkFlags) apply(cmd *cobra.Command, n *wifi.Network) error {
	flags := cmd.Flags()
	if flags.Changed(f.prefix + "ssid") {
		n.SSID = f.ssid
	}
	if flags.Changed(f.prefix + "auth") {
		auth, err := wifi.ParseAuthType(f.auth)
		if err != nil {
			return fmt.Errorf("--%sauth: %w", f.prefix, err)
		}
		n.Auth = auth
	}
	if flags.Changed(f.prefix + "passphrase") {
		n.Passphrase = f.passphrase
	}
	return nil
}

func newOnboardCmd(a *app) *cobra.Command {
	var (
		onboardee, target networkFlags
		retries           int
	)

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Onboard one device onto the target network",
		Long: `Joins the onboardee soft AP, waits for the device announcement,
configures the target network on the device, joins the target network and
waits for the device to announce itself there.

Settings not given as flags come from the "onboarding" section of the
configuration file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := a.cfg.Onboarding
			if err := onboardee.apply(cmd, &req.Onboardee); err != nil {
				return err
			}
			if err := target.apply(cmd, &req.Target); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			q := newEventQueue()
			return a.withStack(ctx, q, func(s *stack) error {
				defer q.stop()
				followCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				s.runFollowers(followCtx)

				device, err := runOnboarding(ctx, s.engine, req, retries, q, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				return recordDevice(a.store(), device, req.Target.SSID, time.Now())
			})
		},
	}

	onboardee.register(cmd, "onboardee-", "Onboardee soft AP")
	target.register(cmd, "target-", "Target network")
	cmd.Flags().IntVar(&retries, "retries", 0, "Resume a failed run this many times")
	return cmd
}

// runner is the part of the engine the onboard command drives.
type runner interface {
	Start(onboarding.Request) error
	Abort() error
}

// runOnboarding starts req and reports progress to w until the run
// completes, fails for good or ctx is done. Resumable failures are retried
// up to retries times.
func runOnboarding(ctx context.Context, eng runner, req onboarding.Request, retries int, q *eventQueue, w io.Writer) (*onboarding.DeviceContext, error) {
	if err := eng.Start(req); err != nil {
		return nil, err
	}
	started := time.Now()

	for {
		select {
		case <-ctx.Done():
			if err := eng.Abort(); err != nil && !errors.Is(err, onboarding.ErrClosed) {
				return nil, err
			}
			fmt.Fprintln(w, "aborted")
			return nil, ctx.Err()

		case ev := <-q.ch:
			switch ev := ev.(type) {
			case onboarding.StateChange:
				fmt.Fprintf(w, "%-10s %s\n", ev.Phase, ev.State)
				if ev.State == onboarding.StateTargetAnnounceReceived {
					printDevice(w, ev.Device)
					fmt.Fprintf(w, "onboarded in %s\n", time.Since(started).Round(time.Millisecond))
					return ev.Device, nil
				}

			case onboarding.ErrorEvent:
				fmt.Fprintf(w, "%-10s %s: %s\n", ev.Phase, ev.Kind, ev.Detail)
				if ev.Kind.Resumable() && retries > 0 {
					retries--
					fmt.Fprintf(w, "resuming (%d retries left)\n", retries)
					if err := eng.Start(req); err != nil {
						return nil, err
					}
					continue
				}
				return nil, fmt.Errorf("onboarding failed in %s: %w", ev.State, ev.Err)
			}
		}
	}
}

// recordDevice adds the onboarded device to store. A nil store or a
// device without a target announcement records nothing.
func recordDevice(store *persistence.ControllerStateStore, d *onboarding.DeviceContext, network string, at time.Time) error {
	if store == nil || d == nil || d.Target == nil {
		return nil
	}
	entry := persistence.OnboardedDevice{
		DeviceID:    d.ID.String(),
		DeviceName:  d.Target.DeviceName,
		Model:       d.Target.Model,
		Network:     wifi.NormalizeSSID(network),
		Locator:     d.Target.Locator(),
		Port:        d.Target.Port,
		OnboardedAt: at,
	}
	if err := store.Update(func(s *persistence.ControllerState) { s.Record(entry) }); err != nil {
		return fmt.Errorf("failed to record device: %w", err)
	}
	return nil
}

func printDevice(w io.Writer, d *onboarding.DeviceContext) {
	if d == nil {
		return
	}
	fmt.Fprintf(w, "device %s\n", d.ID)
	if d.Target != nil {
		fmt.Fprintf(w, "  name:     %s\n", d.Target.DeviceName)
		fmt.Fprintf(w, "  endpoint: %s\n", d.Target.Endpoint())
	}
}

func newOffboardCmd(a *app) *cobra.Command {
	var (
		timeout time.Duration
		device  string
	)
	cmd := &cobra.Command{
		Use:   "offboard [<locator> <port>]",
		Short: "Tell a device to forget its Wi-Fi configuration",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			q := newEventQueue()
			return a.withStack(ctx, q, func(s *stack) error {
				defer q.stop()
				locator, port, err := resolveTarget(ctx, s.browser, args, device)
				if err != nil {
					return err
				}
				if err := s.engine.Offboard(locator, port); err != nil {
					return err
				}
				if err := waitOffboard(ctx, q, cmd.OutOrStdout()); err != nil {
					return err
				}
				if store := a.store(); store != nil {
					return store.Update(func(st *persistence.ControllerState) { st.Remove(locator, port) })
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Give up after this long")
	cmd.Flags().StringVar(&device, "device", "", "Find the device by id instead of locator and port")
	return cmd
}

func waitOffboard(ctx context.Context, q *eventQueue, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-q.ch:
			switch ev := ev.(type) {
			case offboardResult:
				fmt.Fprintf(w, "offboarded %s:%d\n", ev.locator, ev.port)
				return nil
			case onboarding.ErrorEvent:
				if ev.Kind == onboarding.KindOffboardFailed {
					return fmt.Errorf("offboard failed: %w", ev.Err)
				}
			}
		}
	}
}

func parsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil || p == 0 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return uint16(p), nil
}

func newDevicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices recorded in the state file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.store()
			if store == nil {
				return errors.New("no state file configured (use --state-file or state_file)")
			}
			state, err := store.Load()
			if err != nil {
				return err
			}
			printDevices(cmd.OutOrStdout(), state.Devices)
			return nil
		},
	}
}

func printDevices(w io.Writer, devices []persistence.OnboardedDevice) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No onboarded devices")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tNAME\tNETWORK\tENDPOINT\tONBOARDED")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.DeviceID, d.DeviceName, d.Network,
			net.JoinHostPort(d.Locator, strconv.Itoa(int(d.Port))), d.OnboardedAt.Format(time.RFC3339))
	}
	tw.Flush()
}
