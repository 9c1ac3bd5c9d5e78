package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/app"
	"github.com/weiwangfds/structview/internal/storage/blob"
	"github.com/weiwangfds/structview/internal/storage/ledger"
)

type migrateOptions struct {
	from       string
	uploads    string
	noBackup   bool
	jsonOutput bool
}

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	mo := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy records from a history.json ledger into the configured store",
		Long: `Copy every record of a flat history.json ledger into the store selected by
storage.backend, oldest first. Records already present are skipped, so the
command can be re-run. Missing file sizes are filled in from the uploads
directory. The source file is copied to <file>.backup afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), opts.cfg, mo)
		},
	}

	cmd.Flags().StringVar(&mo.from, "from", "history.json", "source JSON ledger")
	cmd.Flags().StringVar(&mo.uploads, "uploads", "", "uploads directory used to backfill file sizes (default: storage.upload_dir)")
	cmd.Flags().BoolVar(&mo.noBackup, "no-backup", false, "do not copy the source ledger to <file>.backup")
	cmd.Flags().BoolVar(&mo.jsonOutput, "json", false, "output JSON")
	return cmd
}

func runMigrate(ctx context.Context, out io.Writer, cfg *config.Config, mo *migrateOptions) error {
	from, err := filepath.Abs(mo.from)
	if err != nil {
		return err
	}
	info, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "%s not found, nothing to migrate\n", from)
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.Storage.Backend == config.BackendJSON {
		target, err := filepath.Abs(cfg.Storage.LedgerPath)
		if err != nil {
			return err
		}
		if target == from {
			return fmt.Errorf("source %s is the configured ledger; set storage.backend to database or mongo", from)
		}
	}

	src, err := ledger.NewJSONStore(from)
	if err != nil {
		return err
	}
	defer src.Close()

	uploads := mo.uploads
	if uploads == "" {
		uploads = cfg.Storage.UploadDir
	}
	blobs, err := blob.New(uploads)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if !mo.jsonOutput {
		fmt.Fprintf(out, "Migrating %s (%s) into %s store\n", from, humanize.Bytes(uint64(info.Size())), cfg.Storage.Backend)
	}

	report, err := ledger.Migrate(ctx, src, a.Ledger, blobs)
	if err != nil {
		return err
	}

	if !mo.noBackup {
		if err := copyFile(from, from+".backup"); err != nil {
			return fmt.Errorf("backup %s: %w", from, err)
		}
	}

	if mo.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Total:    %d\n", report.Total)
		fmt.Fprintf(out, "Migrated: %d\n", report.Migrated)
		fmt.Fprintf(out, "Skipped:  %d (already present)\n", report.Skipped)
		fmt.Fprintf(out, "Failed:   %d\n", report.Failed)
		for _, f := range report.Failures {
			fmt.Fprintf(out, "  %s: %s\n", f.ID, f.Err)
		}
		if !mo.noBackup {
			fmt.Fprintf(out, "Backed up source to %s.backup\n", from)
		}
	}

	if report.Failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
