package lattice

// StringID A handle to an interned label sequence. Handles are only meaningful for the
// StringRepository that issued them.
type StringID int32

// EmptyString The handle of the zero-length sequence, in every repository.
const EmptyString StringID = 0

type stringKey struct {
	parent StringID
	label  Label
}

type stringEntry struct {
	parent StringID
	label  Label
	length int32
}

// StringRepository Hash-conses label sequences as chains of (parent, label) entries,
// so that appending one label costs a single map lookup and equal sequences share the
// same handle. Entries are never modified once created; they are released together by
// Destroy.
type StringRepository struct {
	// entries[0] stands for the empty string.
	entries []stringEntry
	set     map[stringKey]StringID
}

func NewStringRepository() *StringRepository {
	r := &StringRepository{}
	r.Destroy()
	return r
}

func (r *StringRepository) EmptyString() StringID {
	return EmptyString
}

// Successor Returns the string of parent with label appended.
func (r *StringRepository) Successor(parent StringID, label Label) StringID {
	key := stringKey{parent: parent, label: label}
	if id, ok := r.set[key]; ok {
		return id
	}
	id := StringID(len(r.entries))
	r.entries = append(r.entries, stringEntry{
		parent: parent,
		label:  label,
		length: r.entries[parent].length + 1,
	})
	r.set[key] = id
	return id
}

// Concatenate Returns the string of a followed by the string of b.
func (r *StringRepository) Concatenate(a, b StringID) StringID {
	if a == EmptyString {
		return b
	} else if b == EmptyString {
		return a
	}
	ans := a
	for _, l := range r.ConvertToVector(b) {
		ans = r.Successor(ans, l)
	}
	return ans
}

// CommonPrefix Returns the longest common prefix of a and b.
func (r *StringRepository) CommonPrefix(a, b StringID) StringID {
	// Walk the longer one up to the same length, then both in step until they meet.
	for r.entries[a].length > r.entries[b].length {
		a = r.entries[a].parent
	}
	for r.entries[b].length > r.entries[a].length {
		b = r.entries[b].parent
	}
	for a != b {
		a = r.entries[a].parent
		b = r.entries[b].parent
	}
	return a
}

// ReduceToCommonPrefix Truncates b to its longest common prefix with the string of a
// and returns the truncated slice.
func (r *StringRepository) ReduceToCommonPrefix(a StringID, b []Label) []Label {
	aLen := int(r.entries[a].length)
	if len(b) > aLen {
		b = b[:aLen]
	}
	// Bring a down to the length of b; from there the labels line up.
	for int(r.entries[a].length) > len(b) {
		a = r.entries[a].parent
	}
	n := len(b)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != r.entries[a].label {
			n = i
		}
		a = r.entries[a].parent
	}
	return b[:n]
}

// RemovePrefix Returns the string of a without its first n labels.
func (r *StringRepository) RemovePrefix(a StringID, n int) StringID {
	if n == 0 {
		return a
	}
	vec := r.ConvertToVector(a)
	if n > len(vec) {
		panic("lattice: prefix longer than string")
	}
	ans := EmptyString
	for _, l := range vec[n:] {
		ans = r.Successor(ans, l)
	}
	return ans
}

// IsPrefixOf Returns true if a is a prefix of b. Takes time proportional to
// Len(b) - Len(a).
func (r *StringRepository) IsPrefixOf(a, b StringID) bool {
	if a == EmptyString || a == b {
		return true
	}
	aLen := r.entries[a].length
	for r.entries[b].length > aLen {
		b = r.entries[b].parent
	}
	return a == b
}

// ConvertToVector Returns the labels of a, first to last.
func (r *StringRepository) ConvertToVector(a StringID) []Label {
	out := make([]Label, r.entries[a].length)
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = r.entries[a].label
		a = r.entries[a].parent
	}
	return out
}

// ConvertFromVector Returns the handle of the given label sequence.
func (r *StringRepository) ConvertFromVector(vec []Label) StringID {
	ans := EmptyString
	for _, l := range vec {
		ans = r.Successor(ans, l)
	}
	return ans
}

// Len Number of labels in a.
func (r *StringRepository) Len(a StringID) int {
	return int(r.entries[a].length)
}

// Size Number of distinct non-empty strings interned so far.
func (r *StringRepository) Size() int {
	return len(r.entries) - 1
}

// Destroy Release every interned string. Handles issued before are invalid afterwards.
func (r *StringRepository) Destroy() {
	r.entries = []stringEntry{{parent: EmptyString}}
	r.set = make(map[stringKey]StringID)
}
