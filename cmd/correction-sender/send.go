package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/correction-sender/pkg/dispatch"
	"github.com/Sternrassler/correction-sender/pkg/ingest"
	"github.com/Sternrassler/correction-sender/pkg/results"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Submit every record of the corrections sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts)
		},
	}
}

func runSend(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := ingest.ReadAll(a.cfg.RecordsFile)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	credentials, err := ingest.ReadCredentials(a.cfg.KeysFile)
	if err != nil {
		return fmt.Errorf("read keys: %w", err)
	}

	a.logger.Info().
		Int("records", len(records)).
		Int("keys", credentials.Len()).
		Str("records_file", a.cfg.RecordsFile).
		Msg("Sheets loaded")

	files, err := results.OpenFiles(a.cfg.SuccessLogPath, a.cfg.FailedLogPath)
	if err != nil {
		return err
	}
	defer files.Close()

	d := dispatch.New(a.client, credentials, files.Aggregator(), dispatch.Config{
		Workers:       a.cfg.Threads,
		ProgressEvery: 50,
	})
	summary := d.Run(ctx, records)

	renderSummary(cmd.OutOrStdout(), summary)
	return nil
}

// renderSummary prints the run totals as a table.
func renderSummary(w io.Writer, s dispatch.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Run", "Records", "Succeeded", "Failed", "Elapsed"})
	t.AppendRow(table.Row{s.RunID.String(), s.Total, s.Succeeded, s.Failed, s.ElapsedClock()})
	t.Render()
}
