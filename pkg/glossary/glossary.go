// Package glossary defines the canonical record shared by every stage of the
// harvester, along with the letter keys and column labels of the source pages.
package glossary

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Column labels used by the source pages and by every tabular store.
const (
	LabelID        = "編號"
	LabelTerm      = "原文"
	LabelTermTW    = "臺灣用語"
	LabelTermCN    = "大陸用語"
	LabelTermOther = "其他用語"
)

// Header is the fixed header row of a tabular store.
var Header = []string{LabelID, LabelTerm, LabelTermTW, LabelTermCN, LabelTermOther}

// NumFields is the number of columns a record occupies.
const NumFields = 5

// ErrInvalidLetter is returned for a letter key outside 0 and A-Z.
var ErrInvalidLetter = errors.New("invalid letter key")

// Record is one glossary row as published on a letter page.
type Record struct {
	Letter    string
	ID        string // identifier as published; unique within Letter only
	Term      string // primary (English) term
	TermTW    string // Taiwan usage
	TermCN    string // mainland usage
	TermOther string // other usage
}

// Letters returns the page keys in publication order: "0" then "A" to "Z".
func Letters() []string {
	out := make([]string, 0, 27)
	out = append(out, "0")
	for c := 'A'; c <= 'Z'; c++ {
		out = append(out, string(c))
	}
	return out
}

// ValidLetter reports whether s is a page key.
func ValidLetter(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return c == '0' || (c >= 'A' && c <= 'Z')
}

// IsHeaderRow reports whether a table row is the column header, judged only by
// the cleaned text of its first cell. A data row whose first cell reads exactly
// LabelID is indistinguishable from the header and is treated as one.
func IsHeaderRow(firstCell string) bool {
	return firstCell == LabelID
}

// FromFields builds a record from cells in store order. Missing trailing
// cells are left empty and extra cells are ignored.
func FromFields(letter string, fields []string) Record {
	var f [NumFields]string
	copy(f[:], fields)
	return Record{
		Letter:    letter,
		ID:        f[0],
		Term:      f[1],
		TermTW:    f[2],
		TermCN:    f[3],
		TermOther: f[4],
	}
}

// Fields returns the record's columns in store order.
func (r Record) Fields() []string {
	return []string{r.ID, r.Term, r.TermTW, r.TermCN, r.TermOther}
}

// NumericID parses the published identifier as a positive integer.
func (r Record) NumericID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.ID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", r.ID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("id must be positive, got %d", id)
	}
	return id, nil
}

// EntryID returns the document-wide identifier used for terminology entries.
func (r Record) EntryID() string {
	return EntryID(r.Letter, strings.TrimSpace(r.ID))
}

// EntryID composes a terminology entry identifier from a letter and an id.
func EntryID(letter, id string) string {
	return "term-" + letter + "-" + id
}

// ParseEntryID splits an entry identifier back into its letter and numeric id,
// which together form the relational key.
func ParseEntryID(entryID string) (string, int64, error) {
	rest, ok := strings.CutPrefix(entryID, "term-")
	if !ok {
		return "", 0, fmt.Errorf("entry id %q: missing term- prefix", entryID)
	}
	letter, idText, ok := strings.Cut(rest, "-")
	if !ok {
		return "", 0, fmt.Errorf("entry id %q: missing id", entryID)
	}
	if !ValidLetter(letter) {
		return "", 0, fmt.Errorf("entry id %q: %w", entryID, ErrInvalidLetter)
	}
	id, err := Record{ID: idText}.NumericID()
	if err != nil {
		return "", 0, fmt.Errorf("entry id %q: %w", entryID, err)
	}
	return letter, id, nil
}
