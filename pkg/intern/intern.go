// Package intern hands out small, comparable handles for the strings the compiler uses as identifiers.
//
// A StringKey is stable for the lifetime of the process: the same string always yields the same key
// and a key is never reused for another string. Keys are not stable across processes, persist the
// string instead.
package intern

import (
	"slices"
	"strings"
	"sync"
)

// StringKey is an interned string. The zero value is Empty.
type StringKey uint32

// Empty is the key of the empty string.
const Empty StringKey = 0

type table struct {
	mu      sync.RWMutex
	keys    map[string]StringKey
	strings []string
}

var global = newTable()

func newTable() *table {
	return &table{
		keys:    map[string]StringKey{"": Empty},
		strings: []string{""},
	}
}

func (t *table) intern(s string) StringKey {
	t.mu.RLock()
	key, ok := t.keys[s]
	t.mu.RUnlock()
	if ok {
		return key
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if key, ok = t.keys[s]; ok {
		return key
	}
	// the caller may hand us a slice of a larger buffer
	s = strings.Clone(s)
	key = StringKey(len(t.strings))
	t.strings = append(t.strings, s)
	t.keys[s] = key
	return key
}

func (t *table) lookup(s string) (StringKey, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key, ok := t.keys[s]
	return key, ok
}

func (t *table) resolve(key StringKey) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(key) >= len(t.strings) {
		return ""
	}
	return t.strings[key]
}

// Intern returns the key for s, adding it to the table if needed.
func Intern(s string) StringKey {
	return global.intern(s)
}

// Lookup returns the key for s without adding it.
func Lookup(s string) (StringKey, bool) {
	return global.lookup(s)
}

// InternAll interns every string in s.
func InternAll(s ...string) []StringKey {
	out := make([]StringKey, len(s))
	for i := range s {
		out[i] = Intern(s[i])
	}
	return out
}

func (k StringKey) String() string {
	return global.resolve(k)
}

func (k StringKey) IsEmpty() bool {
	return k == Empty
}

// Compare orders keys by their string value. Key order itself reflects interning order,
// which depends on scheduling and must never leak into output.
func (k StringKey) Compare(other StringKey) int {
	if k == other {
		return 0
	}
	return strings.Compare(k.String(), other.String())
}

func (k StringKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StringKey) UnmarshalText(text []byte) error {
	*k = Intern(string(text))
	return nil
}

// Sort sorts keys by their string value.
func Sort(keys []StringKey) {
	slices.SortFunc(keys, StringKey.Compare)
}

// Strings resolves keys in order.
func Strings(keys []StringKey) []string {
	out := make([]string, len(keys))
	for i := range keys {
		out[i] = keys[i].String()
	}
	return out
}
