package eventlog

import (
	"slices"
	"strings"
)

// Filter selects the entries of the log to show. Zero value matches everything.
type Filter struct {
	Kinds  []Kind  `json:"kinds,omitempty" yaml:"kinds,omitempty"`
	Actors []int64 `json:"actors,omitempty" yaml:"actors,omitempty"`
	Query  string  `json:"query,omitempty" yaml:"query,omitempty"`
}

func (f Filter) IsEmpty() bool {
	return len(f.Kinds) == 0 && len(f.Actors) == 0 && strings.TrimSpace(f.Query) == ""
}

// Match evaluates the filter locally. The query is matched case-insensitively
// against the described text, without resolved dependencies.
func (f Filter) Match(it *Item) bool {
	if it == nil {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, it.Kind()) {
		return false
	}
	if len(f.Actors) > 0 && !slices.Contains(f.Actors, it.ActorID) {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(Describe(it, nil).Text), strings.ToLower(q))
}

// Equal reports whether both filters select the same entries.
func (f Filter) Equal(o Filter) bool {
	return slices.Equal(f.Kinds, o.Kinds) &&
		slices.Equal(f.Actors, o.Actors) &&
		strings.TrimSpace(f.Query) == strings.TrimSpace(o.Query)
}

// ParseKinds parses a comma separated list of kinds, ignoring blanks.
func ParseKinds(s string) ([]Kind, bool) {
	var ret []Kind
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k := Kind(part)
		if !slices.Contains(Kinds, k) {
			return nil, false
		}
		ret = append(ret, k)
	}
	return ret, true
}
