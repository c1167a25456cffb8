package model

import (
	"encoding/json"
	"math"
	"sort"
)

// Tristate is a boolean judgment where the absence of evidence is kept
// apart from a negative result.
type Tristate int8

const (
	Unknown Tristate = iota
	True
	False
)

func TristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

func (t Tristate) Known() bool { return t == True || t == False }

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// ParseTristate reads "true"/"false"; anything else is Unknown.
func ParseTristate(s string) Tristate {
	switch s {
	case "true":
		return True
	case "false":
		return False
	default:
		return Unknown
	}
}

// StringSet is an unordered set of strings. Two sets with the same members
// are equal regardless of insertion order.
type StringSet map[string]struct{}

func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, it := range items {
		if it != "" {
			s[it] = struct{}{}
		}
	}
	return s
}

func (s StringSet) Add(item string) {
	if item != "" {
		s[item] = struct{}{}
	}
}

func (s StringSet) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) Equal(other StringSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(b []byte) error {
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*s = NewStringSet(items...)
	return nil
}

// IsEmpty reports whether v carries no information: nil, empty text, an
// unknown tri-state, NaN, or an empty collection.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case *string:
		return x == nil || *x == ""
	case float64:
		return math.IsNaN(x)
	case *float64:
		return x == nil || math.IsNaN(*x)
	case Tristate:
		return !x.Known()
	case StringSet:
		return len(x) == 0
	case []SourceTag:
		return len(x) == 0
	default:
		return false
	}
}
