package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alljoyn/services-onboarding/cmd/onboardctl/commands"
	"github.com/alljoyn/services-onboarding/pkg/log"
)

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect onboarding trace files",
	}
	cmd.AddCommand(newTraceViewCmd(), newTraceStatsCmd(), newTraceExportCmd())
	return cmd
}

func newTraceViewCmd() *cobra.Command {
	var (
		run, layer, category, phase, device string
		since, until                        string
	)
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Print trace events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := log.Filter{SessionID: run, Phase: phase, DeviceID: device}
			if layer != "" {
				l, err := commands.ParseLayerFlag(layer)
				if err != nil {
					return err
				}
				filter.Layer = &l
			}
			if category != "" {
				c, err := commands.ParseCategoryFlag(category)
				if err != nil {
					return err
				}
				filter.Category = &c
			}
			var err error
			if filter.TimeStart, err = parseTimeFlag("since", since); err != nil {
				return err
			}
			if filter.TimeEnd, err = parseTimeFlag("until", until); err != nil {
				return err
			}
			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&run, "run", "", "Only events of this run or session id")
	f.StringVar(&layer, "layer", "", "Only this layer (transport, wire, engine, wifi, discovery)")
	f.StringVar(&category, "category", "", "Only this category (message, state, error, announcement, action)")
	f.StringVar(&phase, "phase", "", "Only this phase (ONBOARDEE, TARGET, DEVICE)")
	f.StringVar(&device, "device", "", "Only events for this device id")
	f.StringVar(&since, "since", "", "Only events at or after this RFC 3339 time")
	f.StringVar(&until, "until", "", "Only events before this RFC 3339 time")
	return cmd
}

func parseTimeFlag(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func newTraceStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarize a trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStatsCommand(args[0], cmd.OutOrStdout())
		},
	}
}

func newTraceExportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a trace file as jsonl or csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return commands.RunExport(args[0], format, w)
		},
	}
	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format: jsonl, csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}
