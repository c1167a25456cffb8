package model

import (
	"sort"
	"time"
)

// Source identifiers written to provenance rows.
const (
	SourceSiteText  = "site_text"
	SourceOPFF      = "OPFF"
	SourceDerived   = "derived"
	SourceWikipedia = "wikipedia"
	SourceAKC       = "akc"
	SourceCSV       = "csv"
)

// Provenance records where a single field value came from.
type Provenance struct {
	Source    string
	URL       string
	FetchedAt time.Time
	Derived   bool
	RunID     string
}

// AsDerived returns a copy tagged as computed from other fields.
func (p Provenance) AsDerived() Provenance {
	p.Source = SourceDerived
	p.Derived = true
	return p
}

// SourceTag is one entry of a record's sources set.
type SourceTag struct {
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (p Provenance) Tag() SourceTag {
	return SourceTag{Source: p.Source, URL: p.URL, FetchedAt: p.FetchedAt.UTC()}
}

// UnionSources merges b into a keyed by (source, url). An existing tag keeps
// its original timestamp, so re-ingesting the same page changes nothing.
// The result is sorted and the bool reports whether a tag was added.
func UnionSources(a, b []SourceTag) ([]SourceTag, bool) {
	type key struct{ source, url string }
	seen := make(map[key]bool, len(a)+len(b))
	out := make([]SourceTag, 0, len(a)+len(b))
	for _, t := range a {
		k := key{t.Source, t.URL}
		if !seen[k] {
			seen[k] = true
			out = append(out, t)
		}
	}
	added := false
	for _, t := range b {
		k := key{t.Source, t.URL}
		if !seen[k] {
			seen[k] = true
			out = append(out, t)
			added = true
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].URL < out[j].URL
	})
	return out, added
}

// Candidate is one extracted value with the provenance it was observed under.
type Candidate struct {
	Value      any
	Provenance Provenance
}

// FieldSet is the flat field -> candidate mapping handed to the upsert
// orchestrator. Missing fields are simply absent.
type FieldSet map[string]Candidate

// Set stores v unless it is empty; extraction misses never reach the map.
func (fs FieldSet) Set(field string, v any, p Provenance) {
	if IsEmpty(v) {
		return
	}
	fs[field] = Candidate{Value: v, Provenance: p}
}

func (fs FieldSet) Fields() []string {
	out := make([]string, 0, len(fs))
	for f := range fs {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Entity names a kind of catalog record.
type Entity string

const (
	EntityProduct Entity = "product"
	EntityBreed   Entity = "breed"
)
