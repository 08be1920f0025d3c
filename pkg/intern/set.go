package intern

// Set is a set of interned strings.
type Set map[StringKey]struct{}

func NewSet(keys ...StringKey) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s Set) Add(keys ...StringKey) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

func (s Set) AddSet(other Set) {
	for k := range other {
		s[k] = struct{}{}
	}
}

func (s Set) Remove(k StringKey) {
	delete(s, k)
}

func (s Set) Has(k StringKey) bool {
	_, ok := s[k]
	return ok
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the members ordered by their string value.
func (s Set) Sorted() []StringKey {
	out := make([]StringKey, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	Sort(out)
	return out
}
