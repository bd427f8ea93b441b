package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetQueueDedup(t *testing.T) {
	q := NewSetQueue[int]()

	assert.True(t, q.Add(1))
	assert.False(t, q.Add(1), "duplicate while queued")
	assert.True(t, q.Add(2))
	assert.Equal(t, 2, q.Len())
	assert.True(t, q.Contains(1))

	v, ok := q.Take(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.False(t, q.Contains(1))

	assert.True(t, q.Add(1), "value can be queued again once taken")
	v, _ = q.Take(context.Background())
	assert.Equal(t, 2, v, "FIFO order")
	v, _ = q.Take(context.Background())
	assert.Equal(t, 1, v)
}

func TestSetQueueStopDrains(t *testing.T) {
	q := NewSetQueue[string]()
	q.Add("a")
	q.Add("b")
	q.Stop()

	assert.False(t, q.Add("c"))

	var got []string
	for {
		v, ok := q.Take(context.Background())
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b"}, got)

	// The sentinel stays: further takes return immediately.
	_, ok := q.Take(context.Background())
	assert.False(t, ok)
}

func TestSetQueueTakeBlocks(t *testing.T) {
	q := NewSetQueue[int]()

	got := make(chan int, 1)
	go func() {
		v, ok := q.Take(context.Background())
		if ok {
			got <- v
		}
	}()

	select {
	case <-got:
		t.Fatal("Take returned before anything was added")
	case <-time.After(20 * time.Millisecond):
	}

	q.Add(42)
	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Take did not wake up")
	}
}

func TestSetQueueTakeCancelled(t *testing.T) {
	q := NewSetQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := q.Take(ctx)
	assert.False(t, ok)
}
