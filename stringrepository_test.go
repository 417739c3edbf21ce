package lattice

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRepository(t *testing.T) {
	t.Run("EmptyString", func(t *testing.T) {
		r := NewStringRepository()
		assert.Equal(t, EmptyString, r.EmptyString())
		assert.Equal(t, 0, r.Len(EmptyString))
		assert.Empty(t, r.ConvertToVector(EmptyString))
		assert.Equal(t, EmptyString, r.ConvertFromVector(nil))
		assert.Equal(t, 0, r.Size())
	})

	t.Run("HashConsing", func(t *testing.T) {
		r := NewStringRepository()
		a := r.ConvertFromVector([]Label{1, 2, 3})
		b := r.ConvertFromVector([]Label{1, 2, 3})
		assert.Equal(t, a, b)
		assert.Equal(t, 3, r.Size())

		c := r.ConvertFromVector([]Label{1, 2, 4})
		assert.NotEqual(t, a, c)
		assert.Equal(t, 4, r.Size())
		assert.Equal(t, a, r.Successor(r.ConvertFromVector([]Label{1, 2}), 3))
	})

	t.Run("Concatenate", func(t *testing.T) {
		r := NewStringRepository()
		a := r.ConvertFromVector([]Label{1, 2})
		b := r.ConvertFromVector([]Label{3, 4})
		assert.Equal(t, []Label{1, 2, 3, 4}, r.ConvertToVector(r.Concatenate(a, b)))
		assert.Equal(t, a, r.Concatenate(a, EmptyString))
		assert.Equal(t, b, r.Concatenate(EmptyString, b))
	})

	t.Run("CommonPrefix", func(t *testing.T) {
		r := NewStringRepository()
		a := r.ConvertFromVector([]Label{1, 2, 3, 4})
		b := r.ConvertFromVector([]Label{1, 2, 5})
		c := r.ConvertFromVector([]Label{7})
		assert.Equal(t, []Label{1, 2}, r.ConvertToVector(r.CommonPrefix(a, b)))
		assert.Equal(t, []Label{1, 2}, r.ConvertToVector(r.CommonPrefix(b, a)))
		assert.Equal(t, EmptyString, r.CommonPrefix(a, c))
		assert.Equal(t, a, r.CommonPrefix(a, a))
		assert.Equal(t, EmptyString, r.CommonPrefix(a, EmptyString))
	})

	t.Run("ReduceToCommonPrefix", func(t *testing.T) {
		r := NewStringRepository()
		a := r.ConvertFromVector([]Label{1, 2, 3})
		tests := []struct {
			name string
			b    []Label
			want []Label
		}{
			{"longer", []Label{1, 2, 3, 4, 5}, []Label{1, 2, 3}},
			{"shorter", []Label{1, 2}, []Label{1, 2}},
			{"divergeMiddle", []Label{1, 9, 3}, []Label{1}},
			{"divergeFirst", []Label{9, 2, 3}, []Label{}},
			{"empty", []Label{}, []Label{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.want, r.ReduceToCommonPrefix(a, slices.Clone(tt.b)))
			})
		}
	})

	t.Run("RemovePrefix", func(t *testing.T) {
		r := NewStringRepository()
		a := r.ConvertFromVector([]Label{1, 2, 3})
		assert.Equal(t, a, r.RemovePrefix(a, 0))
		assert.Equal(t, []Label{2, 3}, r.ConvertToVector(r.RemovePrefix(a, 1)))
		assert.Equal(t, EmptyString, r.RemovePrefix(a, 3))
		assert.Panics(t, func() { r.RemovePrefix(a, 4) })
	})

	t.Run("IsPrefixOf", func(t *testing.T) {
		r := NewStringRepository()
		a := r.ConvertFromVector([]Label{1, 2})
		b := r.ConvertFromVector([]Label{1, 2, 3})
		c := r.ConvertFromVector([]Label{1, 3, 3})
		assert.True(t, r.IsPrefixOf(a, b))
		assert.True(t, r.IsPrefixOf(EmptyString, b))
		assert.True(t, r.IsPrefixOf(b, b))
		assert.False(t, r.IsPrefixOf(b, a))
		assert.False(t, r.IsPrefixOf(a, c))
	})

	t.Run("Destroy", func(t *testing.T) {
		r := NewStringRepository()
		r.ConvertFromVector([]Label{1, 2, 3})
		r.Destroy()
		assert.Equal(t, 0, r.Size())
		a := r.ConvertFromVector([]Label{5})
		assert.Equal(t, []Label{5}, r.ConvertToVector(a))
	})
}

func TestStringRepositoryRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := NewStringRepository()
	randomVec := func() []Label {
		v := make([]Label, rng.Intn(6))
		for i := range v {
			v[i] = Label(1 + rng.Intn(3))
		}
		return v
	}

	for i := 0; i < 500; i++ {
		v, w := randomVec(), randomVec()
		a, b := r.ConvertFromVector(v), r.ConvertFromVector(w)
		require.Equal(t, v, r.ConvertToVector(a))
		require.Equal(t, len(v), r.Len(a))

		// Interned strings are equal exactly when their handles are.
		require.Equal(t, slices.Equal(v, w), a == b)

		n := 0
		for n < len(v) && n < len(w) && v[n] == w[n] {
			n++
		}
		require.Equal(t, v[:n], r.ConvertToVector(r.CommonPrefix(a, b)))
		require.Equal(t, v[:n], r.ReduceToCommonPrefix(b, slices.Clone(v)))

		cat := append(slices.Clone(v), w...)
		require.Equal(t, cat, r.ConvertToVector(r.Concatenate(a, b)))
		require.Equal(t, w, r.ConvertToVector(r.RemovePrefix(r.Concatenate(a, b), len(v))))
		require.True(t, r.IsPrefixOf(a, r.Concatenate(a, b)))
	}
}
