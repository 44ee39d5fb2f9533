package extract

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"

	"github.com/go-shiori/dom"
	nethtml "golang.org/x/net/html"

	"github.com/japaniel/iicmterm/pkg/glossary"
)

// ErrNoTable is returned when a page carries no <table> element. The page is
// structurally broken and yields nothing.
var ErrNoTable = errors.New("table element not found")

// Stats counts how each table row of a page was classified.
type Stats struct {
	Rows      int // all <tr> elements seen
	Extracted int
	Spacer    int // rows without any <td>
	Header    int
	Short     int // rows with fewer than five cells
}

// Extractor turns one glossary page into records.
type Extractor struct {
	// Logger receives per-row skip messages. nil means slog.Default().
	Logger *slog.Logger
}

// New returns an Extractor using the default logger.
func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Page parses UTF-8 markup for the given letter and returns its records in
// row order.
func (e *Extractor) Page(letter string, r io.Reader) ([]glossary.Record, Stats, error) {
	var stats Stats
	if !glossary.ValidLetter(letter) {
		return nil, stats, fmt.Errorf("letter %q: %w", letter, glossary.ErrInvalidLetter)
	}

	doc, err := nethtml.Parse(r)
	if err != nil {
		return nil, stats, fmt.Errorf("parse html: %w", err)
	}

	table := dom.QuerySelector(doc, "table")
	if table == nil {
		return nil, stats, ErrNoTable
	}

	log := e.logger().With("letter", letter)
	var records []glossary.Record

	for _, row := range dom.GetElementsByTagName(table, "tr") {
		stats.Rows++
		cells := dom.GetElementsByTagName(row, "td")
		if len(cells) == 0 {
			stats.Spacer++
			continue
		}

		first := CleanText(dom.TextContent(cells[0]))
		if glossary.IsHeaderRow(first) {
			stats.Header++
			continue
		}

		if len(cells) < glossary.NumFields {
			stats.Short++
			log.Debug("dropping short row", "row", stats.Rows, "cells", len(cells))
			continue
		}

		fields := make([]string, glossary.NumFields)
		fields[0] = first
		for i := 1; i < glossary.NumFields; i++ {
			fields[i] = CleanText(dom.TextContent(cells[i]))
		}
		records = append(records, glossary.FromFields(letter, fields))
		stats.Extracted++
	}

	return records, stats, nil
}

// PageBytes is Page over an in-memory document.
func (e *Extractor) PageBytes(letter string, content []byte) ([]glossary.Record, Stats, error) {
	return e.Page(letter, bytes.NewReader(content))
}

// CleanText decodes HTML character entities and trims surrounding whitespace.
// The parser has already decoded one level of entities; a second pass catches
// doubly-encoded text such as "&amp;nbsp;".
func CleanText(s string) string {
	return strings.TrimSpace(newlines.Replace(html.UnescapeString(s)))
}

// newlines folds CR and CRLF to LF so cell text survives the CSV store.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")
