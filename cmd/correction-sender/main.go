// Command correction-sender submits receipt corrections from a spreadsheet to
// the payment API and records one outcome line per row.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/correction-sender/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	pretty      bool
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "correction-sender",
		Short: "Submit receipt corrections to the payment API",
		Long: `Reads correction records and API keys from spreadsheets, submits every
record through a rate-limited worker pool, and appends one outcome line per
record to the success or failure log.

Running without a subcommand is the same as "send".`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "properties file with the run configuration")
	flags.BoolVar(&opts.pretty, "pretty", false, "human-readable console logs instead of JSON")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run (e.g. :9090)")

	cmd.AddCommand(newSendCmd(opts), newPaymentInfoCmd(opts))
	return cmd
}
