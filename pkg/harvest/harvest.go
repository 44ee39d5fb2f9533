// Package harvest runs the retrieval and extraction stages over every letter.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/japaniel/iicmterm/pkg/extract"
	"github.com/japaniel/iicmterm/pkg/fetch"
	"github.com/japaniel/iicmterm/pkg/glossary"
	"github.com/japaniel/iicmterm/pkg/store"
)

// FetchReport lists which letters were downloaded and which were already present.
type FetchReport struct {
	Downloaded []string
	Skipped    []string
}

// Harvester turns downloaded pages into tabular stores.
type Harvester struct {
	// Logger receives per-page progress and failures. nil means slog.Default().
	Logger *slog.Logger
}

func (h *Harvester) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// FetchAll ensures a page exists for each letter, in order. The first
// retrieval failure stops the run; pages fetched so far stay on disk so a
// rerun resumes where this one stopped.
func FetchAll(ctx context.Context, f *fetch.Fetcher, letters []string) (FetchReport, error) {
	var rep FetchReport
	for _, letter := range letters {
		downloaded, err := f.EnsurePage(ctx, letter)
		if err != nil {
			return rep, err
		}
		if downloaded {
			rep.Downloaded = append(rep.Downloaded, letter)
		} else {
			rep.Skipped = append(rep.Skipped, letter)
		}
	}
	return rep, nil
}

// PageResult is the outcome of extracting one page.
type PageResult struct {
	Letter string
	Page   string
	Store  string
	Stats  extract.Stats
	Err    error
}

// ExtractReport aggregates the per-page results of ExtractAll.
type ExtractReport struct {
	Pages   []PageResult
	Records int
	Failed  int
}

// ExtractAll runs Harvester.ExtractAll with the default logger.
func ExtractAll(ex *extract.Extractor, rawDir, csvDir string) (ExtractReport, error) {
	return (&Harvester{}).ExtractAll(ex, rawDir, csvDir)
}

// ExtractAll converts every stored page in rawDir into a tabular store in
// csvDir. A page that cannot be extracted is reported and its store from an
// earlier run is removed, so exporters never see data the current page no
// longer yields. The returned error joins all page failures.
func (h *Harvester) ExtractAll(ex *extract.Extractor, rawDir, csvDir string) (ExtractReport, error) {
	log := h.logger()
	var rep ExtractReport

	pages, err := filepath.Glob(filepath.Join(rawDir, "termb_*.htm"))
	if err != nil {
		return rep, err
	}
	sort.Strings(pages)

	if err := os.MkdirAll(csvDir, 0o755); err != nil {
		return rep, fmt.Errorf("create store dir: %w", err)
	}

	var errs []error
	for _, page := range pages {
		letter := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(page), "termb_"), ".htm")
		if !glossary.ValidLetter(letter) {
			log.Warn("skipping page with unexpected name", "page", page)
			continue
		}

		out := filepath.Join(csvDir, store.FileName(letter))
		res := extractPage(ex, letter, page, out)
		rep.Pages = append(rep.Pages, res)
		if res.Err != nil {
			log.Error("page extraction failed", "page", page, "error", res.Err)
			if err := os.Remove(out); err == nil {
				log.Warn("removed stale store", "store", out)
			} else if !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("remove stale store %s: %w", out, err))
			}
			rep.Failed++
			errs = append(errs, res.Err)
			continue
		}
		rep.Records += res.Stats.Extracted
		log.Info("extracted page", "page", page, "store", res.Store,
			"records", res.Stats.Extracted, "short_rows", res.Stats.Short)
	}
	return rep, errors.Join(errs...)
}

func extractPage(ex *extract.Extractor, letter, page, out string) PageResult {
	res := PageResult{Letter: letter, Page: page}

	f, err := os.Open(page)
	if err != nil {
		res.Err = err
		return res
	}
	defer f.Close()

	records, stats, err := ex.Page(letter, f)
	res.Stats = stats
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", page, err)
		return res
	}
	if err := store.WriteFile(out, records); err != nil {
		res.Err = fmt.Errorf("write %s: %w", out, err)
		return res
	}
	res.Store = out
	return res
}
