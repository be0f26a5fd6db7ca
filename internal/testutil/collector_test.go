package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordsInOrder(t *testing.T) {
	c := NewCollector[string]()
	c.Add("a")
	c.Add("b")
	c.Add("c")

	assert.Equal(t, []string{"a", "b", "c"}, c.Values())
	assert.Equal(t, 3, c.Len())
}

func TestCollector_Last(t *testing.T) {
	c := NewCollector[int]()

	_, ok := c.Last()
	assert.False(t, ok)

	c.Add(1)
	c.Add(2)

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last)
}

func TestCollector_ValuesReturnsCopy(t *testing.T) {
	c := NewCollector[int]()
	c.Add(1)

	snapshot := c.Values()
	c.Add(2)

	// The earlier snapshot is unaffected by later additions.
	assert.Equal(t, []int{1}, snapshot)
	assert.Equal(t, []int{1, 2}, c.Values())
}

func TestCollector_ConcurrentAdd(t *testing.T) {
	c := NewCollector[int]()
	const numGoroutines = 100

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Add(n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, c.Len())
}
