package tbx

import "github.com/japaniel/iicmterm/pkg/glossary"

// placement decides how a record field appears inside a termEntry.
type placement int

const (
	// groupAlways emits a langSet even when the text is empty.
	groupAlways placement = iota
	// groupIfPresent emits a langSet only for non-empty text.
	groupIfPresent
	// noteIfPresent attaches non-empty text as a note instead of a langSet.
	noteIfPresent
)

// fieldPolicy binds one record field to its language tag and placement.
type fieldPolicy struct {
	field string
	lang  string
	place placement
	value func(glossary.Record) string
}

// fieldPolicies lists the term fields in output order. The three alternates
// are deliberately treated differently: Taiwan usage always yields a group,
// mainland usage only when present, and other usage becomes a note.
var fieldPolicies = []fieldPolicy{
	{field: "term", lang: "en", place: groupAlways, value: func(r glossary.Record) string { return r.Term }},
	{field: "term_tw", lang: "zh_TW", place: groupAlways, value: func(r glossary.Record) string { return r.TermTW }},
	{field: "term_cn", lang: "zh_Hans", place: groupIfPresent, value: func(r glossary.Record) string { return r.TermCN }},
	{field: "term_other", place: noteIfPresent, value: func(r glossary.Record) string { return r.TermOther }},
}

// Note attributes for other-usage text.
const (
	noteFrom  = "translator"
	noteLabel = "其他用語: "
)
