package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alljoyn/services-onboarding/pkg/wifi"
	"github.com/alljoyn/services-onboarding/pkg/wifi/nmcli"
)

func newWiFiController(a *app) *nmcli.Controller {
	return nmcli.New(nmcli.Config{Interface: a.cfg.Interface, Logger: a.logger})
}

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List onboardable soft APs and candidate target networks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := newWiFiController(a).Scan(cmd.Context())
			if err != nil {
				return err
			}
			printClassification(cmd.OutOrStdout(), wifi.Classify(results))
			return nil
		},
	}
}

func printClassification(w io.Writer, c wifi.Classification) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSSID\tAUTH\tSIGNAL")
	for _, n := range c.Onboardable {
		fmt.Fprintf(tw, "onboardee\t%s\t%s\t%d\n", n.SSID, n.Auth, n.Level)
	}
	for _, n := range c.Targets {
		fmt.Fprintf(tw, "target\t%s\t%s\t%d\n", n.SSID, n.Auth, n.Level)
	}
	tw.Flush()
}

func newCurrentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the SSID the station is associated with",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ssid, err := newWiFiController(a).CurrentNetwork(cmd.Context())
			if err != nil {
				return err
			}
			if ssid == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(not associated)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), ssid)
			return nil
		},
	}
}

func newConnectCmd(a *app) *cobra.Command {
	var (
		network networkFlags
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Join a network and verify the association",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var n wifi.Network
			if err := network.apply(cmd, &n); err != nil {
				return err
			}
			if err := wifi.ConnectAndVerify(cmd.Context(), newWiFiController(a), n, timeout); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected to %s\n", n)
			return nil
		},
	}
	network.register(cmd, "", "Network")
	cmd.Flags().DurationVar(&timeout, "timeout", wifi.DefaultJoinTimeout, "Join timeout")
	_ = cmd.MarkFlagRequired("ssid")
	return cmd
}
