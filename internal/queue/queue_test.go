// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package queue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mellium.im/stanzastream/internal/queue"
)

func TestPutPopOrder(t *testing.T) {
	d := queue.New[int]()
	for i := 1; i <= 3; i++ {
		d.Put(i)
	}
	require.Equal(t, 3, d.Len())
	for i := 1; i <= 3; i++ {
		v, ok := d.TryPop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := d.TryPop()
	require.False(t, ok)
	require.Equal(t, 0, d.Len())
}

func TestPutFront(t *testing.T) {
	d := queue.New[string]()
	d.Put("b")
	d.Put("c")
	d.PutFront("a")
	var got []string
	for {
		v, ok := d.TryPop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestPutFrontEmpty(t *testing.T) {
	d := queue.New[int]()
	d.PutFront(42)
	v, ok := d.TryPop()
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestReadySignalsOnPut(t *testing.T) {
	d := queue.New[int]()
	select {
	case <-d.Ready():
		t.Fatal("ready channel signaled on empty queue")
	default:
	}
	d.Put(1)
	select {
	case <-d.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready channel did not signal after Put")
	}
}

func TestReadyResignalsWhileNonEmpty(t *testing.T) {
	d := queue.New[int]()
	d.Put(1)
	d.Put(2)
	<-d.Ready()
	_, ok := d.TryPop()
	require.True(t, ok)
	// One item remains, so the hint must be rearmed even though the buffered
	// signal was already consumed.
	select {
	case <-d.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready channel did not re-signal while items remained")
	}
}

func TestConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 100

	d := queue.New[int]()
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				d.Put(i)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, producers*perProducer, d.Len())

	n := 0
	for {
		_, ok := d.TryPop()
		if !ok {
			break
		}
		n++
	}
	require.Equal(t, producers*perProducer, n)
}
