package sequence

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type counter struct {
	mu     sync.Mutex
	n      int
	resets int
}

func (c *counter) Next() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.n
	c.n++
	return v, nil
}

func (c *counter) Reset() error {
	c.mu.Lock()
	c.n = 0
	c.resets++
	c.mu.Unlock()
	return nil
}

type failing struct{ panics bool }

func (f failing) Next() (int, error) {
	if f.panics {
		panic("generator broke")
	}
	return 0, errors.New("no value")
}

func (failing) Reset() error { return nil }

// flaky fails every third call without advancing.
type flaky struct {
	mu    sync.Mutex
	calls int
	n     int
}

func (f *flaky) Next() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls%3 == 1 {
		return 0, errors.New("busy")
	}
	v := f.n
	f.n++
	return v, nil
}

func (f *flaky) Reset() error {
	f.mu.Lock()
	f.n = 0
	f.mu.Unlock()
	return nil
}

func TestAsync_KeepsGenerationOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		calls := rapid.IntRange(1, 200).Draw(t, "calls")
		resetAt := rapid.IntRange(0, calls).Draw(t, "resetAt")

		a := NewAsync[int](&counter{})
		if err := a.Reset(); err != nil {
			t.Fatalf("reset: %v", err)
		}

		want := 0
		for i := 0; i < calls; i++ {
			if i == resetAt {
				if err := a.Reset(); err != nil {
					t.Fatalf("reset: %v", err)
				}
				want = 0
			}
			if got := a.Next(); got != want {
				t.Fatalf("call %d: got %d, want %d", i, got, want)
			}
			want++
		}
	})
}

func TestAsync_WithoutReset(t *testing.T) {
	a := NewAsync[int](&counter{})
	assert.Equal(t, 0, a.Next())
	assert.Equal(t, 1, a.Next())
	assert.Equal(t, 2, a.Next())
}

func TestAsync_ConcurrentNextYieldsDistinctValues(t *testing.T) {
	a := NewAsync[int](&counter{})
	require.NoError(t, a.Reset())

	const workers, perWorker = 8, 100
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v := a.Next()
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Ints(got)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestAsync_FailingGenerator(t *testing.T) {
	for _, g := range []failing{{}, {panics: true}} {
		a := NewAsync[int](g)
		require.NoError(t, a.Reset())
		assert.Zero(t, a.Next())
		assert.Zero(t, a.Next())
	}
}

func TestAsync_PublishNext(t *testing.T) {
	c := &counter{}
	a := NewAsync[int](c)
	require.NoError(t, a.Reset())

	values := map[string]string{}
	a.PublishNext("n", values)
	assert.Equal(t, "0", values["n"])
	a.PublishNext("n", values)
	assert.Equal(t, "1", values["n"])
	assert.Equal(t, 1, c.resets)
}

func TestAsync_RecomputedValueKeepsOrder(t *testing.T) {
	a := NewAsync[int](&flaky{})
	require.NoError(t, a.Reset())

	for i := 0; i < 300; i++ {
		require.Equal(t, i, a.Next())
	}
}
