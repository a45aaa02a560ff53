// Tests for threadpool.go

package iotrt_internal

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestChannelThreadPoolRunsAllWork(t *testing.T) {
	pool := NewChannelThreadPool(4)
	pool.Start()
	defer pool.Free()

	var count atomic.Int32
	const n = 200
	for i := 0; i < n; i++ {
		if !pool.AddWork(func() { count.Add(1) }) {
			t.Fatalf("AddWork rejected while pool running")
		}
	}
	pool.Wait()

	if got := count.Load(); got != n {
		t.Errorf("count = %d, want %d", got, n)
	}
}

func TestChannelThreadPoolAddWorkAfterFreeRejected(t *testing.T) {
	pool := NewChannelThreadPool(1)
	pool.Start()
	pool.Free()

	if pool.AddWork(func() {}) {
		t.Error("AddWork on a freed pool should return false")
	}
}

func TestChannelThreadPoolDefaultSize(t *testing.T) {
	pool := NewChannelThreadPool(0)
	if pool.numWorkers <= 0 {
		t.Errorf("numWorkers = %d, want > 0 (GetAvailableCPUCount fallback)", pool.numWorkers)
	}
}

func TestChannelThreadPoolStartIdempotent(t *testing.T) {
	pool := NewChannelThreadPool(2)
	pool.Start()
	pool.Start()
	defer pool.Free()

	done := make(chan struct{})
	pool.AddWork(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("work never ran after double Start")
	}
}
