package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alljoyn/services-onboarding/pkg/devconfig"
	"github.com/alljoyn/services-onboarding/pkg/discovery"
	"github.com/alljoyn/services-onboarding/pkg/transport"
)

func (a *app) newBrowser() *discovery.MDNSBrowser {
	cfg := discovery.DefaultBrowserConfig()
	cfg.Interface = a.cfg.Interface
	return discovery.NewMDNSBrowser(cfg, a.logger.With(slog.String("component", "discovery")))
}

func newDiscoverCmd(a *app) *cobra.Command {
	var (
		timeout time.Duration
		all     bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List devices announcing on the current network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var filter discovery.FilterFunc
			if !all {
				filter = discovery.FilterSupports(discovery.InterfaceOnboarding)
			}
			list, err := discovery.Collect(ctx, a.newBrowser(), filter)
			if err != nil {
				return err
			}
			printAnnouncements(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to listen for announcements")
	cmd.Flags().BoolVar(&all, "all", false, "Include devices that do not accept Wi-Fi configuration")
	return cmd
}

func printAnnouncements(w io.Writer, list []*discovery.Announcement) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no devices found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tNAME\tMODEL\tLOCATOR\tPORT\tVERSION\tONBOARDING")
	for _, an := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%t\n",
			an.DeviceID, orDash(an.DeviceName), orDash(an.Model), orDash(an.Locator()),
			an.Port, orDash(an.Version), an.Supports(discovery.InterfaceOnboarding))
	}
	tw.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// resolveTarget returns the session endpoint for offboard: either the
// explicit locator and port, or the announcement of device.
func resolveTarget(ctx context.Context, src discovery.Source, args []string, device string) (string, uint16, error) {
	if device == "" {
		if len(args) != 2 {
			return "", 0, fmt.Errorf("expected <locator> <port> or --device")
		}
		port, err := parsePort(args[1])
		if err != nil {
			return "", 0, err
		}
		return args[0], port, nil
	}
	if len(args) != 0 {
		return "", 0, fmt.Errorf("--device cannot be combined with <locator> <port>")
	}

	id, err := uuid.Parse(device)
	if err != nil {
		return "", 0, fmt.Errorf("invalid device id: %w", err)
	}
	an, err := discovery.Find(ctx, src, discovery.FilterAll(
		discovery.FilterByDeviceID(id),
		discovery.FilterSupports(discovery.InterfaceOnboarding),
		func(an *discovery.Announcement) bool { return an.Usable() },
	))
	if err != nil {
		return "", 0, fmt.Errorf("device %s: %w", id, err)
	}
	return an.Locator(), an.Port, nil
}

func newStatusCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "status <locator> <port>",
		Short: "Query a device's onboarding state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := parsePort(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client := devconfig.NewClient(devconfig.Config{
				Transport: transport.ClientConfig{ConnectTimeout: timeout},
				Logger:    a.logger.With(slog.String("component", "devconfig")),
			})
			defer client.Close()

			st, err := client.State(ctx, args[0], port)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "state: %s\n", st.State)
			if st.LastErrorCode != 0 || st.LastErrorMessage != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "last error: %d %s\n", st.LastErrorCode, st.LastErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Give up after this long")
	return cmd
}
