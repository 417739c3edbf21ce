package lattice

import (
	"iter"
)

// Hashable A key type that provides its own hash and equality. Equality may be
// looser than identity (for example approximate on weights), as long as equal keys
// hash the same.
type Hashable[K any] interface {
	Hash() uint64
	Equals(other K) bool
}

// HashMap A chained hash table keyed by Hashable values. It is not safe for
// concurrent use.
type HashMap[K Hashable[K], V any] struct {
	buckets    []*Entry[K, V]
	size       int
	mask       uint64
	emptyValue V
	loadFactor float64
}

// Entry A hash table entry.
type Entry[K any, V any] struct {
	key   K
	value V
	next  *Entry[K, V]
}

type optionsHashMap struct {
	capacity   int     // defaults to 1
	loadFactor float64 // defaults to 0.75
}

func newOptionsHashMap(opts ...OptionsHashMap) *optionsHashMap {
	options := &optionsHashMap{
		capacity:   1,
		loadFactor: 0.75,
	}

	for _, opt := range opts {
		opt(options)
	}

	realCap := 1
	for realCap < options.capacity {
		realCap <<= 1
	}
	options.capacity = realCap

	return options
}

type OptionsHashMap func(hashMap *optionsHashMap)

func WithCapacity(capacity int) OptionsHashMap {
	return func(hashMap *optionsHashMap) {
		hashMap.capacity = capacity
	}
}

func WithLoadFactor(loadFactor float64) OptionsHashMap {
	return func(hashMap *optionsHashMap) {
		hashMap.loadFactor = loadFactor
	}
}

// NewHashMap Create a hash table. The initial capacity is rounded up to a power of two.
func NewHashMap[K Hashable[K], V any](options ...OptionsHashMap) *HashMap[K, V] {
	opt := newOptionsHashMap(options...)

	return &HashMap[K, V]{
		buckets:    make([]*Entry[K, V], opt.capacity),
		mask:       uint64(opt.capacity - 1),
		loadFactor: opt.loadFactor,
	}
}

// Set Insert or replace the value stored under key.
func (m *HashMap[K, V]) Set(key K, value V) {
	index := key.Hash() & m.mask

	for e := m.buckets[index]; e != nil; e = e.next {
		if e.key.Equals(key) {
			e.value = value
			return
		}
	}

	// Insert at the head of the chain.
	m.buckets[index] = &Entry[K, V]{
		key:   key,
		value: value,
		next:  m.buckets[index],
	}
	m.size++

	if float64(m.size)/float64(len(m.buckets)) > m.loadFactor {
		m.resize()
	}
}

// Get Look up the value stored under key.
func (m *HashMap[K, V]) Get(key K) (V, bool) {
	index := key.Hash() & m.mask

	for e := m.buckets[index]; e != nil; e = e.next {
		if e.key.Equals(key) {
			return e.value, true
		}
	}
	return m.emptyValue, false
}

func (m *HashMap[K, V]) resize() {
	newCap := len(m.buckets) << 1
	newBuckets := make([]*Entry[K, V], newCap)
	newMask := uint64(newCap - 1)

	for _, head := range m.buckets {
		for e := head; e != nil; {
			next := e.next
			newIndex := e.key.Hash() & newMask
			e.next = newBuckets[newIndex]
			newBuckets[newIndex] = e
			e = next
		}
	}

	m.buckets = newBuckets
	m.mask = newMask
}

// Size Number of entries.
func (m *HashMap[K, V]) Size() int {
	return m.size
}

// Clear Remove all entries and shrink back to a single bucket.
func (m *HashMap[K, V]) Clear() {
	m.buckets = make([]*Entry[K, V], 1)
	m.mask = 0
	m.size = 0
}

// Iterator Visit every entry, in no particular order.
func (m *HashMap[K, V]) Iterator() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, bucket := range m.buckets {
			for e := bucket; e != nil; e = e.next {
				if !yield(e.key, e.value) {
					return
				}
			}
		}
	}
}
