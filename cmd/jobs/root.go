package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"suki-be/internal/email"
	"suki-be/internal/ledgersync"

	"github.com/spf13/cobra"
)

var validFormats = []string{"text", "json"}

type SyncRunner interface {
	ProcessQueue(ctx context.Context) (ledgersync.Summary, error)
}

type EmailRunner interface {
	FlushDue(ctx context.Context) (email.Summary, error)
}

type Runners struct {
	Sync  SyncRunner
	Email EmailRunner
}

// Connector builds the runners and returns a cleanup func.
type Connector func(ctx context.Context) (Runners, func(), error)

type rootOptions struct {
	Format string
}

func newRootCommand(connect Connector) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "jobs",
		Short:         "Periodic background passes for suki-be",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(&cobra.Command{
		Use:   "process-sync-queue",
		Short: "Retry pending and failed ledger syncs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunners(cmd, connect, func(r Runners) error {
				sum, err := r.Sync.ProcessQueue(cmd.Context())
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), opts.Format, sum,
					"processed=%d succeeded=%d failed=%d skipped=%d\n",
					sum.Processed, sum.Succeeded, sum.Failed, sum.Skipped)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "flush-emails",
		Short: "Send scheduled emails that are due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunners(cmd, connect, func(r Runners) error {
				sum, err := r.Email.FlushDue(cmd.Context())
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), opts.Format, sum,
					"processed=%d sent=%d failed=%d\n",
					sum.Processed, sum.Sent, sum.Failed)
			})
		},
	})

	return cmd
}

func withRunners(cmd *cobra.Command, connect Connector, fn func(Runners) error) error {
	r, cleanup, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return fn(r)
}

func printSummary(w io.Writer, format string, v any, text string, args ...any) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(v)
	}
	_, err := fmt.Fprintf(w, text, args...)
	return err
}
