package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"action-items/internal/service"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and print what was added",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.sync.Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, o := range result.Outcomes {
				switch o.Status {
				case service.OutcomeFailed:
					fmt.Fprintf(out, "  ✗ %-30s %v\n", o.Label, o.Err)
				case service.OutcomeEmpty:
					fmt.Fprintf(out, "  · %-30s no recent messages\n", o.Label)
				default:
					fmt.Fprintf(out, "  ✓ %-30s %d item(s)\n", o.Label, o.Added)
				}
			}
			fmt.Fprintf(out, "Added %d task(s) in %s.\n", result.TasksAdded, result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
			return nil
		},
	}
}
