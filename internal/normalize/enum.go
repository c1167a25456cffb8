package normalize

import (
	"github.com/shanehull/petcatalog/internal/textmatch"
)

// EnumTable classifies text into one bucket of an ordered enum field.
type EnumTable struct {
	table *textmatch.Table
	scale []string
}

// NewEnumTable builds a field from buckets in priority order and the same
// buckets ordered by rising 1-5 score.
func NewEnumTable(buckets []textmatch.Category, scale []string) *EnumTable {
	return &EnumTable{table: textmatch.NewTable(buckets...), scale: scale}
}

// Classify returns the highest-priority bucket with an affirmed keyword in
// text.
func (e *EnumTable) Classify(text string) (string, bool) {
	return e.table.MatchAffirmed(text)
}

// Priority lists the bucket keys in tie-break order.
func (e *EnumTable) Priority() []string { return e.table.Keys() }

// WithPriority returns a copy that breaks ties in the given order.
func (e *EnumTable) WithPriority(order []string) *EnumTable {
	if len(order) == 0 {
		return e
	}
	return &EnumTable{table: e.table.Reorder(order), scale: e.scale}
}

func (e *EnumTable) FromScore(score int) (string, bool) {
	return FromScore(score, e.scale)
}

// FromScore maps a 1-5 rating onto scale, which lists buckets from the one
// a score of 1 means to the one a score of 5 means. 1 and 2 share the first
// bucket and 3 the second; 4 and 5 take the next ones, capped at the last.
func FromScore(score int, scale []string) (string, bool) {
	if score < 1 || score > 5 || len(scale) == 0 {
		return "", false
	}
	idx := min(len(scale)-1, max(0, score-2))
	return scale[idx], true
}
