package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alljoyn/services-onboarding/cmd/onboardctl/interactive"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive onboarding console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
			// readline handles ^C itself.
			signal.Ignore(os.Interrupt)

			sh, err := interactive.New(a.cfg.Onboarding)
			if err != nil {
				return err
			}
			defer sh.Close()

			return a.withStack(ctx, sh, func(s *stack) error {
				followCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				s.runFollowers(followCtx)

				sh.Attach(s.engine)
				sh.Run(ctx)
				return nil
			})
		},
	}
}
