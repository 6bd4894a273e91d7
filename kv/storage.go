package kv

import (
	"iter"

	"github.com/indigo-web/tandem/internal/strutil"
)

type Pair struct {
	Key, Value string
}

// Storage is an ordered associative structure for (string, string) pairs with
// case-insensitive keys. Duplicates are preserved in insertion order, so it is used as
// the header storage for both requests and responses. Linear search outperforms maps
// on the amount of entries usually met in practice.
type Storage struct {
	pairs []Pair
}

func New() *Storage {
	return new(Storage)
}

// NewPrealloc returns an instance of Storage with pre-allocated underlying storage.
func NewPrealloc(n int) *Storage {
	return &Storage{
		pairs: make([]Pair, 0, n),
	}
}

// NewFromPairs returns a storage containing the passed pairs in the same order.
func NewFromPairs(pairs ...Pair) *Storage {
	s := NewPrealloc(len(pairs))
	s.pairs = append(s.pairs, pairs...)

	return s
}

// Add appends a new pair of key and value. Already existing values are kept.
func (s *Storage) Add(key, value string) *Storage {
	s.pairs = append(s.pairs, Pair{
		Key:   key,
		Value: value,
	})
	return s
}

// Set replaces all the values of the key by a single one. The pair takes the position
// of the first already existing one, or is appended otherwise.
func (s *Storage) Set(key, value string) *Storage {
	for i, pair := range s.pairs {
		if strutil.CmpFold(pair.Key, key) {
			s.pairs[i] = Pair{Key: key, Value: value}
			s.deleteFrom(i+1, key)
			return s
		}
	}

	return s.Add(key, value)
}

// Delete removes all the pairs of the key.
func (s *Storage) Delete(key string) *Storage {
	s.deleteFrom(0, key)
	return s
}

func (s *Storage) deleteFrom(offset int, key string) {
	n := offset

	for _, pair := range s.pairs[offset:] {
		if !strutil.CmpFold(pair.Key, key) {
			s.pairs[n] = pair
			n++
		}
	}

	clear(s.pairs[n:])
	s.pairs = s.pairs[:n]
}

// Value returns the first value, corresponding to the key. Otherwise, empty string is returned
func (s *Storage) Value(key string) string {
	return s.ValueOr(key, "")
}

// ValueOr returns either the first value corresponding to the key or custom value, defined
// via the second parameter.
func (s *Storage) ValueOr(key, or string) string {
	value, found := s.Get(key)
	if !found {
		return or
	}

	return value
}

// Get returns a value and a bool, indicating whether the value was found. If it wasn't, it'll
// be an empty string.
func (s *Storage) Get(key string) (value string, found bool) {
	for _, pair := range s.pairs {
		if strutil.CmpFold(key, pair.Key) {
			return pair.Value, true
		}
	}

	return "", false
}

// Values returns all the values of the key in their original order, or nil if there
// are none.
func (s *Storage) Values(key string) (values []string) {
	for _, pair := range s.pairs {
		if strutil.CmpFold(pair.Key, key) {
			values = append(values, pair.Value)
		}
	}

	return values
}

// Keys returns all unique keys in order of their first appearance.
func (s *Storage) Keys() []string {
	var keys []string

	for _, pair := range s.pairs {
		if !contains(keys, pair.Key) {
			keys = append(keys, pair.Key)
		}
	}

	return keys
}

// Pairs returns an iterator over the pairs.
func (s *Storage) Pairs() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, pair := range s.pairs {
			if !yield(pair.Key, pair.Value) {
				break
			}
		}
	}
}

// Has indicates, whether there's an entry of the key.
func (s *Storage) Has(key string) bool {
	_, found := s.Get(key)
	return found
}

// Len returns a number of stored pairs.
func (s *Storage) Len() int {
	if s == nil {
		return 0
	}

	return len(s.pairs)
}

func (s *Storage) Empty() bool {
	return s.Len() == 0
}

// Clone creates a deep copy, which may be used later or stored somewhere safely.
func (s *Storage) Clone() *Storage {
	if s == nil {
		return New()
	}

	return NewFromPairs(s.pairs...)
}

// Expose exposes the underlying pairs slice.
func (s *Storage) Expose() []Pair {
	if s == nil {
		return nil
	}

	return s.pairs
}

// Clear all the entries. However, all the allocated space won't be freed.
func (s *Storage) Clear() *Storage {
	s.pairs = s.pairs[:0]
	return s
}

func contains(collection []string, key string) bool {
	for _, element := range collection {
		if strutil.CmpFold(element, key) {
			return true
		}
	}

	return false
}
