// Package store reads and writes the per-letter CSV files that sit between
// extraction and every exporter.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/japaniel/iicmterm/pkg/glossary"
)

const (
	filePrefix = "termb_"
	fileExt    = ".csv"
)

var fileNameRe = regexp.MustCompile(`^termb_([A-Z0-9])\.csv$`)

// File is one tabular store on disk.
type File struct {
	Letter string
	Path   string
}

// FileName returns the store file name for a letter, e.g. termb_B.csv.
func FileName(letter string) string {
	return filePrefix + letter + fileExt
}

// LetterFromFileName extracts the letter key from a store file name.
func LetterFromFileName(name string) (string, error) {
	m := fileNameRe.FindStringSubmatch(filepath.Base(name))
	if m == nil || !glossary.ValidLetter(m[1]) {
		return "", fmt.Errorf("cannot extract letter from file name %q: %w", name, glossary.ErrInvalidLetter)
	}
	return m[1], nil
}

// Write writes the header row followed by one row per record.
//
// Fields round-trip through Read unchanged except for carriage returns: the
// CSV reader folds \r\n inside quoted fields to \n. Extracted text never
// carries \r, see extract.CleanText.
func Write(w io.Writer, records []glossary.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(glossary.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(r.Fields()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates or truncates path and writes records to it.
func WriteFile(path string, records []glossary.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, records)
}

// Read parses a store. The first row is taken as the header and discarded.
// Rows with fewer than five fields are padded with empty strings so that the
// exporters can apply their own validation.
func Read(r io.Reader, letter string) ([]glossary.Record, error) {
	rows, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	records := make([]glossary.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, glossary.FromFields(letter, row))
	}
	return records, nil
}

// ReadFile reads the store at path, deriving the letter from its name.
func ReadFile(path string) ([]glossary.Record, error) {
	letter, err := LetterFromFileName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, letter)
}

// ReadRows returns every row of the store at path, header included, exactly
// as stored.
func ReadRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAll(f)
}

func readAll(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
}

// List returns the stores in dir sorted by file name, which is also letter
// order. Files matching the prefix without a valid letter are not stores and
// are left out.
func List(dir string) ([]File, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	files := make([]File, 0, len(matches))
	for _, m := range matches {
		letter, err := LetterFromFileName(m)
		if err != nil {
			continue
		}
		files = append(files, File{Letter: letter, Path: m})
	}
	return files, nil
}
