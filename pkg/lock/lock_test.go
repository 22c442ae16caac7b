package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaSerializesSameKey(t *testing.T) {
	arena := NewArena()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := arena.Lock("doc-1")
			counter++
			release()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
}

func TestArenaDistinctKeysDoNotBlock(t *testing.T) {
	arena := NewArena()
	releaseA := arena.Lock("doc-a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release := arena.Lock("doc-b")
		release()
		close(done)
	}()
	<-done
}

func TestArenaCleansUpEntries(t *testing.T) {
	arena := NewArena()
	release := arena.Lock("doc-1")
	release()

	arena.mu.Lock()
	defer arena.mu.Unlock()
	require.Empty(t, arena.locks)
}
