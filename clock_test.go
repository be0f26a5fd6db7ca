package volition

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_Next_Monotonic(t *testing.T) {
	var c clock

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(3), c.Next())
	assert.Equal(t, int64(3), c.Current())
}

func TestClock_Next_Concurrent(t *testing.T) {
	var c clock

	const goroutines = 10
	const callsEach = 100

	var wg sync.WaitGroup
	seen := make(chan int64, goroutines*callsEach)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < callsEach; i++ {
				seen <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	// Every value unique, range fully covered.
	unique := make(map[int64]bool)
	for v := range seen {
		assert.False(t, unique[v], "duplicate seq %d", v)
		unique[v] = true
	}
	assert.Len(t, unique, goroutines*callsEach)
	assert.Equal(t, int64(goroutines*callsEach), c.Current())
}
