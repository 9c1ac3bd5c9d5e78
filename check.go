package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/app"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare ledger records against the uploads directory",
		Long: `Read-only consistency check. Lists records whose file is missing and files
that no record points to. Exits with status 2 when any problem is found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts.cfg, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output JSON")
	return cmd
}

func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, jsonOutput bool) error {
	// 检查只读，不启动镜像
	cfg.Mirror.Enabled = false

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.History.Check(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Found %d records in %s store\n", report.Records, cfg.Storage.Backend)
		fmt.Fprintf(out, "Found %d files in %s\n", report.Blobs, a.Blobs.Root())
		for _, item := range report.Missing {
			fmt.Fprintf(out, "MISSING %s (%s, uploaded %s): %s\n",
				item.ID, item.OriginalName, humanize.Time(time.UnixMilli(item.Timestamp)), item.Path)
		}
		for _, name := range report.Orphans {
			fmt.Fprintf(out, "ORPHAN  %s\n", name)
		}
		fmt.Fprintf(out, "\nSummary: %d missing files out of %d records, %d orphan files.\n",
			len(report.Missing), report.Records, len(report.Orphans))
	}

	if !report.Healthy() {
		return &exitError{code: 2}
	}
	return nil
}
