package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/japaniel/iicmterm/pkg/config"
	"github.com/japaniel/iicmterm/pkg/db"
	"github.com/japaniel/iicmterm/pkg/extract"
	"github.com/japaniel/iicmterm/pkg/fetch"
	"github.com/japaniel/iicmterm/pkg/glossary"
	"github.com/japaniel/iicmterm/pkg/harvest"
	"github.com/japaniel/iicmterm/pkg/logging"
	"github.com/japaniel/iicmterm/pkg/store"
	"github.com/japaniel/iicmterm/pkg/tbx"
	"github.com/japaniel/iicmterm/pkg/workbook"
)

// app carries what every command needs once the root has loaded it.
type app struct {
	cfg *config.Config
	out io.Writer
	log *slog.Logger
}

const (
	targetXLSX   = "xlsx"
	targetSQLite = "sqlite"
	targetTBX    = "tbx"
	targetAll    = "all"
)

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "iicmterm",
		Short:         "Harvest the IICM computing glossary and export it",
		Long:          `Downloads the IICM glossary pages, extracts their tables into per-letter CSV files and exports those to XLSX, SQLite and TBX.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.out = cmd.OutOrStdout()
			a.log = logging.Setup(cfg.LogLevel, cfg.LogFormat).With("run_id", uuid.NewString())
			slog.SetDefault(a.log)
			return nil
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "fetch",
			Short: "Download missing glossary pages",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return a.fetch(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "extract",
			Short: "Convert downloaded pages into CSV stores",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return a.extract() },
		},
		&cobra.Command{
			Use:       "export {xlsx|sqlite|tbx|all}",
			Short:     "Export the CSV stores",
			ValidArgs: []string{targetXLSX, targetSQLite, targetTBX, targetAll},
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			RunE:      func(cmd *cobra.Command, args []string) error { return a.export(cmd.Context(), args[0]) },
		},
		&cobra.Command{
			Use:   "run",
			Short: "Fetch, extract and export everything",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.fetch(cmd.Context()); err != nil {
					return err
				}
				// A failed page only loses its own store; export the rest.
				extractErr := a.extract()
				return errors.Join(extractErr, a.export(cmd.Context(), targetAll))
			},
		},
	)
	return root
}

func (a *app) fetch(ctx context.Context) error {
	f := fetch.New(a.cfg.RawDir, a.cfg.PageURL, a.cfg.HTTPTimeout, a.cfg.FetchInterval)
	f.UserAgent = a.cfg.UserAgent
	f.Logger = a.log

	rep, err := harvest.FetchAll(ctx, f, glossary.Letters())
	fmt.Fprintf(a.out, "Downloaded %d pages, %d already present\n", len(rep.Downloaded), len(rep.Skipped))
	return err
}

func (a *app) extract() error {
	h := &harvest.Harvester{Logger: a.log}
	rep, err := h.ExtractAll(&extract.Extractor{Logger: a.log}, a.cfg.RawDir, a.cfg.CSVDir)
	for _, p := range rep.Pages {
		if p.Err != nil {
			fmt.Fprintf(a.out, "  %s: FAILED: %v\n", filepath.Base(p.Page), p.Err)
			continue
		}
		fmt.Fprintf(a.out, "  %s: %d records (%d short rows dropped)\n", filepath.Base(p.Page), p.Stats.Extracted, p.Stats.Short)
	}
	fmt.Fprintf(a.out, "Extracted %d records from %d pages, %d failed\n", rep.Records, len(rep.Pages), rep.Failed)
	return err
}

func (a *app) export(ctx context.Context, target string) error {
	files, err := store.List(a.cfg.CSVDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no tabular stores found in %s", a.cfg.CSVDir)
	}
	fmt.Fprintf(a.out, "Found %d CSV files\n", len(files))

	if target == targetXLSX || target == targetAll {
		if err := ensureParent(a.cfg.XLSXPath); err != nil {
			return err
		}
		x := &workbook.Exporter{Logger: a.log}
		res, err := x.Export(files, a.cfg.XLSXPath)
		if err != nil {
			return fmt.Errorf("xlsx export: %w", err)
		}
		fmt.Fprintf(a.out, "Excel file saved as %s with %d worksheets\n", a.cfg.XLSXPath, len(res.Sheets))
	}

	if target == targetSQLite || target == targetAll {
		if err := ensureParent(a.cfg.DBPath); err != nil {
			return err
		}
		x := &db.Exporter{Logger: a.log}
		rep, err := x.ExportFile(ctx, a.cfg.DBPath, files)
		if err != nil {
			return fmt.Errorf("sqlite export: %w", err)
		}
		for _, s := range rep.Stores {
			fmt.Fprintf(a.out, "  %s: inserted %d records, skipped %d records\n", filepath.Base(s.Path), s.Inserted, s.Skipped)
		}
		fmt.Fprintf(a.out, "Database %s: %d records across %d letters (inserted %d, skipped %d)\n",
			a.cfg.DBPath, rep.Total, rep.Letters, rep.Inserted, rep.Skipped)
	}

	if target == targetTBX || target == targetAll {
		if err := ensureParent(a.cfg.TBXPath); err != nil {
			return err
		}
		x := &tbx.Exporter{Logger: a.log}
		rep, err := x.ExportFile(files, a.cfg.TBXPath)
		if err != nil {
			return fmt.Errorf("tbx export: %w", err)
		}
		for _, l := range rep.PerLetter {
			fmt.Fprintf(a.out, "  %s: added %d entries\n", store.FileName(l.Letter), l.Entries)
		}
		fmt.Fprintf(a.out, "TBX file %s: %d entries\n", a.cfg.TBXPath, rep.Total)
	}
	return nil
}

func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
