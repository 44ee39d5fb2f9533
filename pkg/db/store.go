package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/japaniel/iicmterm/pkg/glossary"
)

// DBExecutor is the part of *sql.DB and *sql.Tx the glossary queries need, so
// ImportStore can upsert inside its transaction and lookups can run on the
// plain connection.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Entry is one row of the glossary table.
type Entry struct {
	Letter    string
	ID        int64
	Term      string
	TermTW    string
	TermCN    string
	TermOther string
}

// EntryFromRecord validates the relational key of r and trims its terms.
func EntryFromRecord(r glossary.Record) (Entry, error) {
	if !glossary.ValidLetter(r.Letter) {
		return Entry{}, fmt.Errorf("letter %q: %w", r.Letter, glossary.ErrInvalidLetter)
	}
	id, err := r.NumericID()
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Letter:    r.Letter,
		ID:        id,
		Term:      strings.TrimSpace(r.Term),
		TermTW:    strings.TrimSpace(r.TermTW),
		TermCN:    strings.TrimSpace(r.TermCN),
		TermOther: strings.TrimSpace(r.TermOther),
	}, nil
}

// UpsertEntry inserts e, replacing any row with the same (letter, id).
func UpsertEntry(ctx context.Context, db DBExecutor, e Entry) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO glossary (letter, id, term, term_tw, term_cn, term_other)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Letter, e.ID, nullableString(e.Term), nullableString(e.TermTW),
		nullableString(e.TermCN), nullableString(e.TermOther),
	)
	if err != nil {
		return fmt.Errorf("upsert %s/%d: %w", e.Letter, e.ID, err)
	}
	return nil
}

// GetEntry returns the row for (letter, id). sql.ErrNoRows is returned when absent.
func GetEntry(ctx context.Context, db DBExecutor, letter string, id int64) (Entry, error) {
	var e Entry
	var term, tw, cn, other sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT letter, id, term, term_tw, term_cn, term_other FROM glossary WHERE letter = ? AND id = ?`,
		letter, id,
	).Scan(&e.Letter, &e.ID, &term, &tw, &cn, &other)
	if err != nil {
		return Entry{}, err
	}
	e.Term = term.String
	e.TermTW = tw.String
	e.TermCN = cn.String
	e.TermOther = other.String
	return e, nil
}

// GetEntryByEntryID resolves a terminology entry identifier to its row.
func GetEntryByEntryID(ctx context.Context, db DBExecutor, entryID string) (Entry, error) {
	letter, id, err := glossary.ParseEntryID(entryID)
	if err != nil {
		return Entry{}, err
	}
	return GetEntry(ctx, db, letter, id)
}

// FindByTerm returns every row whose primary term equals term, ordered by key.
func FindByTerm(ctx context.Context, db DBExecutor, term string) ([]Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT letter, id, term, term_tw, term_cn, term_other FROM glossary WHERE term = ? ORDER BY letter, id`,
		term,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var t, tw, cn, other sql.NullString
		if err := rows.Scan(&e.Letter, &e.ID, &t, &tw, &cn, &other); err != nil {
			return nil, err
		}
		e.Term, e.TermTW, e.TermCN, e.TermOther = t.String, tw.String, cn.String, other.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountEntries returns the number of rows in the glossary table.
func CountEntries(ctx context.Context, db DBExecutor) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM glossary`).Scan(&n)
	return n, err
}

// CountLetters returns the number of distinct letters stored.
func CountLetters(ctx context.Context, db DBExecutor) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT letter) FROM glossary`).Scan(&n)
	return n, err
}

// nullableString returns nil for an empty string so absent terms are stored as NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
