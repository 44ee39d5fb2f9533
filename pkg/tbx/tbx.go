// Package tbx serializes the glossary as a TermBase eXchange (MARTIF core)
// document.
package tbx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/japaniel/iicmterm/pkg/glossary"
	"github.com/japaniel/iicmterm/pkg/store"
)

const (
	xmlNamespace = "http://www.w3.org/XML/1998/namespace"

	// Declaration and DocType open every document.
	Declaration = `<?xml version="1.0" encoding="UTF-8"?>`
	DocType     = `<!DOCTYPE martif PUBLIC "ISO 12200:1999A//DTD MARTIF core (DXFcdV04)//EN" "TBXcdv04.dtd">`

	// SourceNote is the fixed description in the document header.
	SourceNote = "IICM Glossary"

	indent = "    "
)

// ErrMissingID is returned for a record that has a primary term but no
// identifier. It indicates a broken store and stops the export.
var ErrMissingID = errors.New("record has a term but no id")

type martif struct {
	XMLName xml.Name     `xml:"martif"`
	Type    string       `xml:"type,attr"`
	Lang    string       `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Header  martifHeader `xml:"martifHeader"`
	Text    textBody     `xml:"text"`
}

type martifHeader struct {
	SourceDesc string `xml:"fileDesc>sourceDesc>p"`
}

type textBody struct {
	Entries []termEntry `xml:"body>termEntry"`
}

type termEntry struct {
	ID       string    `xml:"id,attr"`
	LangSets []langSet `xml:"langSet"`
	Note     *note     `xml:"note,omitempty"`
}

type langSet struct {
	Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Term string `xml:"tig>term"`
}

type note struct {
	From string `xml:"from,attr"`
	Text string `xml:",chardata"`
}

// LetterCount is the number of entries written for one letter.
type LetterCount struct {
	Letter  string
	Entries int
}

// Report summarises a TBX export. It is diagnostic only.
type Report struct {
	Total     int
	PerLetter []LetterCount
}

// Qualifies reports whether r has a primary term and so belongs in the document.
func Qualifies(r glossary.Record) bool {
	return strings.TrimSpace(r.Term) != ""
}

// buildEntry converts a qualifying record into a termEntry following
// fieldPolicies.
func buildEntry(r glossary.Record) (termEntry, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return termEntry{}, fmt.Errorf("letter %s term %q: %w", r.Letter, strings.TrimSpace(r.Term), ErrMissingID)
	}

	e := termEntry{ID: glossary.EntryID(r.Letter, id)}
	for _, p := range fieldPolicies {
		v := strings.TrimSpace(p.value(r))
		switch p.place {
		case groupAlways:
			e.LangSets = append(e.LangSets, langSet{Lang: p.lang, Term: v})
		case groupIfPresent:
			if v != "" {
				e.LangSets = append(e.LangSets, langSet{Lang: p.lang, Term: v})
			}
		case noteIfPresent:
			if v != "" {
				e.Note = &note{From: noteFrom, Text: noteLabel + v}
			}
		}
	}
	return e, nil
}

// Exporter writes TBX documents.
type Exporter struct {
	// Logger receives per-store progress. nil means slog.Default().
	Logger *slog.Logger
}

func (x *Exporter) logger() *slog.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return slog.Default()
}

// Export reads every store and writes one TBX document to w. Stores are
// processed in letter order and records in file order. Nothing is written
// to w unless every qualifying record builds.
func (x *Exporter) Export(files []store.File, w io.Writer) (Report, error) {
	var rep Report

	sorted := append([]store.File(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Letter < sorted[j].Letter })

	doc := martif{
		Type:   "TBX",
		Lang:   "en",
		Header: martifHeader{SourceDesc: SourceNote},
	}

	for _, f := range sorted {
		records, err := store.ReadFile(f.Path)
		if err != nil {
			return rep, fmt.Errorf("read %s: %w", f.Path, err)
		}
		count := 0
		for _, r := range records {
			if !Qualifies(r) {
				continue
			}
			e, err := buildEntry(r)
			if err != nil {
				return rep, fmt.Errorf("%s: %w", f.Path, err)
			}
			doc.Text.Entries = append(doc.Text.Entries, e)
			count++
		}
		x.logger().Info("added terminology entries", "store", f.Path, "letter", f.Letter, "entries", count)
		rep.PerLetter = append(rep.PerLetter, LetterCount{Letter: f.Letter, Entries: count})
		rep.Total += count
	}

	out, err := Render(doc)
	if err != nil {
		return rep, err
	}
	if _, err := w.Write(out); err != nil {
		return rep, err
	}
	return rep, nil
}

// ExportFile writes the document to path. The file is replaced only after
// the whole document has been built, so a failed export leaves an earlier
// document in place.
func (x *Exporter) ExportFile(files []store.File, path string) (Report, error) {
	var buf bytes.Buffer
	rep, err := x.Export(files, &buf)
	if err != nil {
		return rep, err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return rep, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return rep, err
	}
	return rep, nil
}

// Export runs Exporter.Export with the default logger.
func Export(files []store.File, w io.Writer) (Report, error) {
	return (&Exporter{}).Export(files, w)
}

// ExportFile runs Exporter.ExportFile with the default logger.
func ExportFile(files []store.File, path string) (Report, error) {
	return (&Exporter{}).ExportFile(files, path)
}

// Render serializes doc with the XML declaration and DOCTYPE in front.
func Render(doc any) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", indent)
	if err != nil {
		return nil, fmt.Errorf("marshal tbx: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(Declaration)
	buf.WriteString("\n\n")
	buf.WriteString(DocType)
	buf.WriteString("\n")
	buf.WriteString(fixLangPrefix(string(body)))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// fixLangPrefix rewrites the qualified xml:lang attribute name into its short
// prefixed form.
func fixLangPrefix(s string) string {
	return strings.ReplaceAll(s, "{"+xmlNamespace+"}lang", "xml:lang")
}
