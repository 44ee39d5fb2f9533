package glossary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetters(t *testing.T) {
	letters := Letters()
	require.Len(t, letters, 27)
	assert.Equal(t, "0", letters[0])
	assert.Equal(t, "A", letters[1])
	assert.Equal(t, "Z", letters[26])
	for _, l := range letters {
		assert.True(t, ValidLetter(l), l)
	}
}

func TestValidLetter(t *testing.T) {
	for _, bad := range []string{"", "a", "1", "AB", "-", "Ä"} {
		assert.False(t, ValidLetter(bad), bad)
	}
}

func TestIsHeaderRow(t *testing.T) {
	assert.True(t, IsHeaderRow("編號"))
	assert.False(t, IsHeaderRow("12"))
	assert.False(t, IsHeaderRow(" 編號"), "predicate expects already-cleaned text")
}

func TestFromFields(t *testing.T) {
	r := FromFields("A", []string{"12", "Algorithm", "演算法", "算法", "", "extra"})
	assert.Equal(t, Record{Letter: "A", ID: "12", Term: "Algorithm", TermTW: "演算法", TermCN: "算法"}, r)
	assert.Equal(t, []string{"12", "Algorithm", "演算法", "算法", ""}, r.Fields())

	short := FromFields("B", []string{"3"})
	assert.Equal(t, Record{Letter: "B", ID: "3"}, short)
}

func TestNumericID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{" 7 ", 7, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
		{"-4", 0, true},
	}
	for _, tt := range tests {
		got, err := Record{ID: tt.in}.NumericID()
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestEntryIDRoundTrip(t *testing.T) {
	r := Record{Letter: "A", ID: "12"}
	assert.Equal(t, "term-A-12", r.EntryID())

	letter, id, err := ParseEntryID(r.EntryID())
	require.NoError(t, err)
	assert.Equal(t, "A", letter)
	assert.Equal(t, int64(12), id)

	for _, bad := range []string{"A-12", "term-A", "term-a-1", "term-A-x"} {
		_, _, err := ParseEntryID(bad)
		assert.Error(t, err, bad)
	}
}
