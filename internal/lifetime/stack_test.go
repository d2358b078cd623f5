package lifetime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseOrder(t *testing.T) {
	var order []string
	s := &Stack{}
	for _, name := range []string{"swapchain", "views", "target"} {
		name := name
		s.Push(name, func() { order = append(order, name) })
	}
	require.Equal(t, 3, s.Len())

	s.Release()
	assert.Equal(t, []string{"target", "views", "swapchain"}, order)
	assert.Equal(t, 0, s.Len())
}

func TestReleaseTwice(t *testing.T) {
	calls := map[string]int{}
	s := NewStack(nil)
	s.Push("fence", func() { calls["fence"]++ })
	s.Push("semaphore", func() { calls["semaphore"]++ })

	s.Release()
	s.Release()

	assert.Equal(t, 1, calls["fence"])
	assert.Equal(t, 1, calls["semaphore"])
}

func TestReuseAfterRelease(t *testing.T) {
	count := 0
	s := &Stack{}
	s.Push("a", func() { count++ })
	s.Release()
	s.Push("b", func() { count++ })
	s.Release()
	assert.Equal(t, 2, count)
}
