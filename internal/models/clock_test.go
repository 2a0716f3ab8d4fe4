package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorClock_Compare(t *testing.T) {
	tests := []struct {
		a, b     VectorClock
		name     string
		expected Ordering
	}{
		{
			name:     "both empty",
			a:        VectorClock{},
			b:        VectorClock{},
			expected: OrderingEqual,
		},
		{
			name:     "equal with zero entry",
			a:        VectorClock{"a": 1, "b": 0},
			b:        VectorClock{"a": 1},
			expected: OrderingEqual,
		},
		{
			name:     "strictly after",
			a:        VectorClock{"a": 2, "b": 1},
			b:        VectorClock{"a": 1, "b": 1},
			expected: OrderingAfter,
		},
		{
			name:     "after by extra key",
			a:        VectorClock{"a": 1, "b": 1},
			b:        VectorClock{"a": 1},
			expected: OrderingAfter,
		},
		{
			name:     "before by missing key",
			a:        VectorClock{"a": 1},
			b:        VectorClock{"a": 1, "b": 1},
			expected: OrderingBefore,
		},
		{
			name:     "concurrent",
			a:        VectorClock{"a": 1},
			b:        VectorClock{"b": 1},
			expected: OrderingConcurrent,
		},
		{
			name:     "concurrent on shared keys",
			a:        VectorClock{"a": 2, "b": 1},
			b:        VectorClock{"a": 1, "b": 2},
			expected: OrderingConcurrent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Compare(tt.b))
		})
	}
}

func TestVectorClock_Relations(t *testing.T) {
	a := VectorClock{"a": 1}
	ab := VectorClock{"a": 1, "b": 1}
	b := VectorClock{"b": 1}

	assert.True(t, ab.Dominates(a))
	assert.False(t, a.Dominates(ab))
	assert.False(t, a.Dominates(a), "clock must not dominate itself")
	assert.True(t, a.Covers(a))
	assert.True(t, ab.Covers(b))
	assert.True(t, a.Concurrent(b))
	assert.False(t, ab.Concurrent(a))
}

func TestVectorClock_Merge(t *testing.T) {
	a := VectorClock{"a": 3, "b": 1}
	b := VectorClock{"b": 4, "c": 2}

	merged := a.Merge(b)

	assert.Equal(t, VectorClock{"a": 3, "b": 4, "c": 2}, merged)
	// исходные часы не меняются
	assert.Equal(t, VectorClock{"a": 3, "b": 1}, a)
	assert.True(t, merged.Covers(a))
	assert.True(t, merged.Covers(b))
	assert.Equal(t, merged, b.Merge(a), "merge must be commutative")
}

func TestVectorClock_Clone(t *testing.T) {
	original := VectorClock{"a": 1}
	clone := original.Clone()
	clone["a"] = 5

	assert.Equal(t, uint64(1), original.Get("a"))
	assert.Equal(t, uint64(0), original.Get("missing"))
}

func TestVectorClock_String(t *testing.T) {
	assert.Equal(t, "a:1,b:2,c:3", VectorClock{"c": 3, "a": 1, "b": 2}.String())
	assert.Equal(t, "", VectorClock{}.String())
}
