// Package workbook writes the tabular stores into a single spreadsheet, one
// worksheet per letter.
package workbook

import (
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/japaniel/iicmterm/pkg/store"
)

// MaxColumnWidth caps the automatic column width.
const MaxColumnWidth = 50

// Result describes a written workbook.
type Result struct {
	Sheets []string
	Rows   int // data rows written across all sheets, headers excluded
}

// Exporter writes workbooks.
type Exporter struct {
	// Logger receives per-sheet progress. nil means slog.Default().
	Logger *slog.Logger
}

func (x *Exporter) logger() *slog.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return slog.Default()
}

// Export runs Exporter.Export with the default logger.
func Export(files []store.File, outPath string) (Result, error) {
	return (&Exporter{}).Export(files, outPath)
}

// Export writes one sheet per store to outPath. Sheets follow letter order
// regardless of the order of files.
func (x *Exporter) Export(files []store.File, outPath string) (Result, error) {
	var res Result
	if len(files) == 0 {
		return res, fmt.Errorf("no tabular stores to export")
	}

	sorted := append([]store.File(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Letter < sorted[j].Letter })

	f := excelize.NewFile()
	defer f.Close()
	defaultSheet := f.GetSheetName(0)

	for _, sf := range sorted {
		x.logger().Info("adding worksheet", "store", sf.Path, "sheet", sf.Letter)
		rows, err := store.ReadRows(sf.Path)
		if err != nil {
			return res, fmt.Errorf("read %s: %w", sf.Path, err)
		}
		if err := writeSheet(f, sf.Letter, rows); err != nil {
			return res, err
		}
		res.Sheets = append(res.Sheets, sf.Letter)
		if len(rows) > 0 {
			res.Rows += len(rows) - 1
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		return res, fmt.Errorf("remove default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(outPath); err != nil {
		return res, fmt.Errorf("save workbook: %w", err)
	}
	return res, nil
}

func writeSheet(f *excelize.File, name string, rows [][]string) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	var widths []int
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
			if j >= len(widths) {
				widths = append(widths, 0)
			}
			if n := utf8.RuneCountInString(v); n > widths[j] {
				widths[j] = n
			}
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
	}

	for j, w := range widths {
		col, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, col, col, float64(ColumnWidth(w))); err != nil {
			return fmt.Errorf("sheet %s column %s width: %w", name, col, err)
		}
	}
	return nil
}

// ColumnWidth is the display width for a column whose longest cell has n
// characters.
func ColumnWidth(n int) int {
	return min(n+2, MaxColumnWidth)
}
