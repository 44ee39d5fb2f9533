package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/japaniel/iicmterm/pkg/store"
)

// StoreResult counts what happened to the rows of one tabular store.
type StoreResult struct {
	Letter   string
	Path     string
	Inserted int
	Skipped  int
}

// Report summarises a relational export.
type Report struct {
	Stores   []StoreResult
	Inserted int
	Skipped  int
	Total    int // rows in the table afterwards
	Letters  int // distinct letters in the table afterwards
}

// Exporter loads tabular stores into the glossary table.
type Exporter struct {
	// Logger receives skipped rows and per-store counts. nil means slog.Default().
	Logger *slog.Logger
}

func (x *Exporter) logger() *slog.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return slog.Default()
}

// ImportStore upserts every valid row of one store inside a single transaction.
// Rows with an unparseable id are skipped and counted.
func (x *Exporter) ImportStore(ctx context.Context, conn *sql.DB, f store.File) (StoreResult, error) {
	res := StoreResult{Letter: f.Letter, Path: f.Path}

	records, err := store.ReadFile(f.Path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", f.Path, err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	for i, r := range records {
		e, err := EntryFromRecord(r)
		if err != nil {
			x.logger().Warn("skipping invalid row", "store", f.Path, "row", i+2, "error", err)
			res.Skipped++
			continue
		}
		if err := UpsertEntry(ctx, tx, e); err != nil {
			return res, err
		}
		res.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit %s: %w", f.Path, err)
	}
	return res, nil
}

// Export imports every store in order and reports per-store and aggregate
// counts. Running it again over unchanged stores leaves the table unchanged.
func (x *Exporter) Export(ctx context.Context, conn *sql.DB, files []store.File) (Report, error) {
	var rep Report
	for _, f := range files {
		res, err := x.ImportStore(ctx, conn, f)
		if err != nil {
			return rep, err
		}
		x.logger().Info("imported store", "store", f.Path, "letter", f.Letter,
			"inserted", res.Inserted, "skipped", res.Skipped)
		rep.Stores = append(rep.Stores, res)
		rep.Inserted += res.Inserted
		rep.Skipped += res.Skipped
	}

	var err error
	if rep.Total, err = CountEntries(ctx, conn); err != nil {
		return rep, fmt.Errorf("count entries: %w", err)
	}
	if rep.Letters, err = CountLetters(ctx, conn); err != nil {
		return rep, fmt.Errorf("count letters: %w", err)
	}
	return rep, nil
}

// ExportFile opens the database at path, exports files into it and closes it.
func (x *Exporter) ExportFile(ctx context.Context, path string, files []store.File) (Report, error) {
	conn, err := Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open database %s: %w", path, err)
	}
	defer conn.Close()
	return x.Export(ctx, conn, files)
}

// ImportStore runs Exporter.ImportStore with the default logger.
func ImportStore(ctx context.Context, conn *sql.DB, f store.File) (StoreResult, error) {
	return (&Exporter{}).ImportStore(ctx, conn, f)
}

// Export runs Exporter.Export with the default logger.
func Export(ctx context.Context, conn *sql.DB, files []store.File) (Report, error) {
	return (&Exporter{}).Export(ctx, conn, files)
}

// ExportFile runs Exporter.ExportFile with the default logger.
func ExportFile(ctx context.Context, path string, files []store.File) (Report, error) {
	return (&Exporter{}).ExportFile(ctx, path, files)
}
