package lattice

const (
	defaultExpectedElements = 4
	defaultLoadFactor       = 0.75
	minHashArrayLength      = 4
	maxHashArrayLength      = uint32(0x80000000) >> 1
)

// IntIntHashMap An open-addressing map from int32 to int32 with linear probing. Key 0
// marks an empty slot, so its value is kept in an extra slot past the table.
// Clear keeps the buffers, which makes the map cheap to reuse.
type IntIntHashMap struct {
	keys   []int32
	values []int32

	assigned    int
	mask        uint32 // Mask for slot scans in keys.
	resizeAt    int    // Expand (rehash) keys when assigned hits this value.
	hasEmptyKey bool   // Special treatment for the "empty slot" key marker.
	loadFactor  float64
}

func NewIntIntHashMap(expectedElements int) *IntIntHashMap {
	m := &IntIntHashMap{loadFactor: defaultLoadFactor}
	if expectedElements < defaultExpectedElements {
		expectedElements = defaultExpectedElements
	}
	m.allocateBuffers(minBufferSize(expectedElements, m.loadFactor))
	return m
}

// Get Returns the value stored under key.
func (m *IntIntHashMap) Get(key int32) (int32, bool) {
	idx, ok := m.indexOf(key)
	if !ok {
		return 0, false
	}
	return m.values[idx], true
}

// Put Stores value under key, replacing any previous value.
func (m *IntIntHashMap) Put(key, value int32) {
	idx, ok := m.indexOf(key)
	if ok {
		m.values[idx] = value
		return
	}
	m.indexInsert(idx, key, value)
}

func (m *IntIntHashMap) indexOf(key int32) (int, bool) {
	if key == 0 {
		return int(m.mask + 1), m.hasEmptyKey
	}

	mask := m.mask
	slot := m.hashKey(key) & mask
	for existing := m.keys[slot]; existing != 0; existing = m.keys[slot] {
		if existing == key {
			return int(slot), true
		}
		slot = (slot + 1) & mask
	}
	return int(slot), false
}

func (m *IntIntHashMap) indexInsert(idx int, key, value int32) {
	if key == 0 {
		m.values[idx] = value
		m.hasEmptyKey = true
		return
	}
	if m.assigned == m.resizeAt {
		m.allocateThenInsertThenRehash(idx, key, value)
	} else {
		m.keys[idx] = key
		m.values[idx] = value
	}
	m.assigned++
}

// allocateThenInsertThenRehash Grows the buffers, puts the pending key into the old
// ones at slot, then rehashes everything into the new buffers.
func (m *IntIntHashMap) allocateThenInsertThenRehash(slot int, pendingKey, pendingValue int32) {
	prevKeys, prevValues := m.keys, m.values
	m.allocateBuffers(nextBufferSize(int(m.mask)+1, m.Size(), m.loadFactor))

	prevKeys[slot] = pendingKey
	prevValues[slot] = pendingValue
	m.rehash(prevKeys, prevValues)
}

func (m *IntIntHashMap) rehash(fromKeys, fromValues []int32) {
	// The empty key lives in the last slot.
	last := len(fromKeys) - 1
	m.keys[len(m.keys)-1] = fromKeys[last]
	m.values[len(m.values)-1] = fromValues[last]

	mask := m.mask
	for i := last - 1; i >= 0; i-- {
		key := fromKeys[i]
		if key == 0 {
			continue
		}
		slot := m.hashKey(key) & mask
		for m.keys[slot] != 0 {
			slot = (slot + 1) & mask
		}
		m.keys[slot] = key
		m.values[slot] = fromValues[i]
	}
}

func (m *IntIntHashMap) allocateBuffers(arraySize int) {
	emptyValue := int32(0)
	if m.values != nil {
		emptyValue = m.values[len(m.values)-1]
	}
	m.keys = make([]int32, arraySize+1)
	m.values = make([]int32, arraySize+1)
	m.values[arraySize] = emptyValue
	m.resizeAt = expandAtCount(arraySize, m.loadFactor)
	m.mask = uint32(arraySize - 1)
}

// Size Number of keys stored.
func (m *IntIntHashMap) Size() int {
	if m.hasEmptyKey {
		return m.assigned + 1
	}
	return m.assigned
}

// Clear Removes every key, keeping the allocated buffers.
func (m *IntIntHashMap) Clear() {
	clear(m.keys)
	clear(m.values)
	m.assigned = 0
	m.hasEmptyKey = false
}

func (m *IntIntHashMap) hashKey(key int32) uint32 {
	return uint32(mix32(int(key)))
}

func minBufferSize(elements int, loadFactor float64) int {
	length := int(float64(elements) / loadFactor)
	if length == elements {
		length++
	}
	size := minHashArrayLength
	for size < length {
		size <<= 1
	}
	if uint32(size) > maxHashArrayLength {
		panic("lattice: hash map too large")
	}
	return size
}

func nextBufferSize(arraySize, elements int, loadFactor float64) int {
	if uint32(arraySize) == maxHashArrayLength {
		panic("lattice: hash map too large")
	}
	return arraySize << 1
}

func expandAtCount(arraySize int, loadFactor float64) int {
	n := int(float64(arraySize) * loadFactor)
	if n > arraySize-1 {
		n = arraySize - 1
	}
	return n
}
