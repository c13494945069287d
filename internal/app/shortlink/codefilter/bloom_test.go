package codefilter

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBloomAddThenMightExist(t *testing.T) {
	b := New(1000, 0.01)

	assert.False(t, b.MightExist("abc123"))
	b.Add("abc123")
	assert.True(t, b.MightExist("abc123"))
	assert.EqualValues(t, 1, b.Count())
}

func TestBloomDefaultsOnBadArgs(t *testing.T) {
	b := New(0, 2)
	b.Add("x")
	assert.True(t, b.MightExist("x"))
}

func TestBloomConcurrentAdd(t *testing.T) {
	b := New(10_000, 0.01)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Add(fmt.Sprintf("w%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < 8; w++ {
		for i := 0; i < 100; i++ {
			assert.True(t, b.MightExist(fmt.Sprintf("w%d-%d", w, i)))
		}
	}
}
