package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushAndDrain(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	q.Push(3)

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []int{1, 2, 3}, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestDrainEmpty(t *testing.T) {
	q := New[string]()
	assert.Empty(t, q.Drain())
}

func TestDrainReturnsOwnedSlice(t *testing.T) {
	q := New[int]()
	q.Push(1)

	got := q.Drain()
	q.Push(2)

	assert.Equal(t, []int{1}, got)
	assert.Equal(t, []int{2}, q.Drain())
}

func TestConcurrentPush(t *testing.T) {
	q := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.Push(n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, q.Len())
}
