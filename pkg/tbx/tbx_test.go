package tbx

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/iicmterm/pkg/glossary"
	"github.com/japaniel/iicmterm/pkg/store"
)

func writeStore(t *testing.T, dir, letter string, records []glossary.Record) store.File {
	t.Helper()
	path := filepath.Join(dir, store.FileName(letter))
	require.NoError(t, store.WriteFile(path, records))
	return store.File{Letter: letter, Path: path}
}

const algorithmDoc = `<?xml version="1.0" encoding="UTF-8"?>

<!DOCTYPE martif PUBLIC "ISO 12200:1999A//DTD MARTIF core (DXFcdV04)//EN" "TBXcdv04.dtd">
<martif type="TBX" xml:lang="en">
    <martifHeader>
        <fileDesc>
            <sourceDesc>
                <p>IICM Glossary</p>
            </sourceDesc>
        </fileDesc>
    </martifHeader>
    <text>
        <body>
            <termEntry id="term-A-12">
                <langSet xml:lang="en">
                    <tig>
                        <term>Algorithm</term>
                    </tig>
                </langSet>
                <langSet xml:lang="zh_TW">
                    <tig>
                        <term>演算法</term>
                    </tig>
                </langSet>
                <langSet xml:lang="zh_Hans">
                    <tig>
                        <term>算法</term>
                    </tig>
                </langSet>
            </termEntry>
        </body>
    </text>
</martif>
`

func TestExportAlgorithmExample(t *testing.T) {
	dir := t.TempDir()
	files := []store.File{writeStore(t, dir, "A", []glossary.Record{
		{Letter: "A", ID: "12", Term: "Algorithm", TermTW: "演算法", TermCN: "算法"},
	})}

	var buf bytes.Buffer
	rep, err := Export(files, &buf)
	require.NoError(t, err)
	assert.Equal(t, algorithmDoc, buf.String())
	assert.Equal(t, Report{Total: 1, PerLetter: []LetterCount{{Letter: "A", Entries: 1}}}, rep)
}

// parsed mirrors the document for assertions on structure.
type parsed struct {
	Entries []struct {
		ID       string `xml:"id,attr"`
		LangSets []struct {
			Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
			Term string `xml:"tig>term"`
		} `xml:"langSet"`
		Note *struct {
			From string `xml:"from,attr"`
			Text string `xml:",chardata"`
		} `xml:"note"`
	} `xml:"text>body>termEntry"`
}

func parseDoc(t *testing.T, doc []byte) parsed {
	t.Helper()
	var p parsed
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false // the DOCTYPE names a DTD that is not available
	require.NoError(t, dec.Decode(&p))
	return p
}

func TestExportFieldPolicies(t *testing.T) {
	dir := t.TempDir()
	files := []store.File{
		writeStore(t, dir, "B", []glossary.Record{
			{Letter: "B", ID: "1", Term: "Bit"},
			{Letter: "B", ID: "2", Term: "Byte", TermTW: "位元組", TermCN: "字节", TermOther: "拜"},
			{Letter: "B", ID: "3", Term: "", TermTW: "無原文"},
			{Letter: "B", ID: "4", Term: "   "},
		}),
		writeStore(t, dir, "0", []glossary.Record{
			{Letter: "0", ID: "2", Term: "3D"},
		}),
	}

	var buf bytes.Buffer
	rep, err := Export(files, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, []LetterCount{{Letter: "0", Entries: 1}, {Letter: "B", Entries: 2}}, rep.PerLetter)

	doc := parseDoc(t, buf.Bytes())
	require.Len(t, doc.Entries, 3)

	// Letter order first: 0 before B.
	assert.Equal(t, "term-0-2", doc.Entries[0].ID)

	bit := doc.Entries[1]
	assert.Equal(t, "term-B-1", bit.ID)
	require.Len(t, bit.LangSets, 2, "en and an empty zh_TW group")
	assert.Equal(t, "en", bit.LangSets[0].Lang)
	assert.Equal(t, "zh_TW", bit.LangSets[1].Lang)
	assert.Empty(t, bit.LangSets[1].Term)
	assert.Nil(t, bit.Note)

	byteEntry := doc.Entries[2]
	require.Len(t, byteEntry.LangSets, 3)
	assert.Equal(t, "zh_Hans", byteEntry.LangSets[2].Lang)
	assert.Equal(t, "字节", byteEntry.LangSets[2].Term)
	require.NotNil(t, byteEntry.Note)
	assert.Equal(t, "translator", byteEntry.Note.From)
	assert.Equal(t, "其他用語: 拜", byteEntry.Note.Text)

	assert.NotContains(t, buf.String(), "無原文")
}

func TestExportEscapesText(t *testing.T) {
	dir := t.TempDir()
	raw := `A<B & "C" 'D'>`
	files := []store.File{writeStore(t, dir, "A", []glossary.Record{
		{Letter: "A", ID: "1", Term: raw, TermTW: raw, TermCN: raw, TermOther: raw},
	})}

	var buf bytes.Buffer
	_, err := Export(files, &buf)
	require.NoError(t, err)
	out := buf.String()

	assert.NotContains(t, out, raw)
	assert.NotContains(t, out, `"C"`)
	assert.NotContains(t, out, `'D'`)
	assert.Contains(t, out, "<term>A&lt;B &amp; &#34;C&#34; &#39;D&#39;&gt;</term>")

	doc := parseDoc(t, buf.Bytes())
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, raw, doc.Entries[0].LangSets[0].Term)
	assert.Equal(t, "其他用語: "+raw, doc.Entries[0].Note.Text)
}

func TestExportMissingIDHaltsExport(t *testing.T) {
	dir := t.TempDir()
	files := []store.File{writeStore(t, dir, "C", []glossary.Record{
		{Letter: "C", ID: "1", Term: "Cache"},
		{Letter: "C", ID: " ", Term: "Compiler"},
	})}

	var buf bytes.Buffer
	_, err := Export(files, &buf)
	require.ErrorIs(t, err, ErrMissingID)
	assert.Zero(t, buf.Len(), "nothing is written when the export halts")
}

func TestExportEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	rep, err := Export(nil, &buf)
	require.NoError(t, err)
	assert.Zero(t, rep.Total)
	assert.True(t, strings.HasPrefix(buf.String(), Declaration+"\n\n"+DocType+"\n<martif"))
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	files := []store.File{writeStore(t, dir, "A", []glossary.Record{
		{Letter: "A", ID: "12", Term: "Algorithm", TermTW: "演算法", TermCN: "算法"},
	})}
	out := filepath.Join(dir, "glossary.tbx")

	_, err := ExportFile(files, out)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, algorithmDoc, string(got))
}

func TestExportFileKeepsPreviousDocumentOnFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "glossary.tbx")
	require.NoError(t, os.WriteFile(out, []byte(algorithmDoc), 0o644))

	files := []store.File{writeStore(t, dir, "C", []glossary.Record{
		{Letter: "C", ID: "", Term: "Compiler"},
	})}
	_, err := ExportFile(files, out)
	require.ErrorIs(t, err, ErrMissingID)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, algorithmDoc, string(got))
	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestExporterUsesInjectedLogger(t *testing.T) {
	dir := t.TempDir()
	files := []store.File{writeStore(t, dir, "A", []glossary.Record{
		{Letter: "A", ID: "12", Term: "Algorithm", TermTW: "演算法"},
	})}

	var logs bytes.Buffer
	x := &Exporter{Logger: slog.New(slog.NewTextHandler(&logs, nil))}
	var buf bytes.Buffer
	_, err := x.Export(files, &buf)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "added terminology entries")
	assert.Contains(t, logs.String(), "entries=1")
}

func TestFixLangPrefix(t *testing.T) {
	in := `<langSet {http://www.w3.org/XML/1998/namespace}lang="en">`
	assert.Equal(t, `<langSet xml:lang="en">`, fixLangPrefix(in))
	assert.Equal(t, `<langSet xml:lang="en">`, fixLangPrefix(`<langSet xml:lang="en">`))
}

func TestFieldPoliciesOrder(t *testing.T) {
	var fields []string
	for _, p := range fieldPolicies {
		fields = append(fields, p.field)
	}
	assert.Equal(t, []string{"term", "term_tw", "term_cn", "term_other"}, fields)
}
