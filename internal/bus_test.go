// Tests for bus.go

package iotrt_internal

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testNewBus(t *testing.T, configJSON string) *Bus {
	t.Helper()
	b := NewBus()
	if err := b.Init([]byte(configJSON)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !b.Start() {
		t.Fatal("Start returned false")
	}
	t.Cleanup(b.Stop)
	return b
}

func TestBusTopicFanOut(t *testing.T) {
	b := testNewBus(t, `{"Interval": 1000000, "Threads": 2}`)

	var count atomic.Int32
	var lastPayload atomic.Value
	sub := b.SubAlloc(nil, func(self any, topic string, payload Value) {
		count.Add(1)
		lastPayload.Store(payload)
	}, "test/tube")
	defer b.SubFree(sub)

	pub := b.PubAlloc(nil, nil, "test/tube")
	defer b.PubFree(pub)

	const n = 10
	fixed := NewMapValue().Set("k", "v")
	for i := 0; i < n; i++ {
		b.Publish(pub, fixed.AddRef(), true)
	}

	if got := count.Load(); got != n {
		t.Errorf("subscriber invoked %d times, want %d", got, n)
	}
	got, _ := lastPayload.Load().(Value).(*MapValue).Get("k")
	if got != "v" {
		t.Errorf("payload k = %v, want v", got)
	}
}

func TestBusTopicMatchExcludesNonMatching(t *testing.T) {
	b := testNewBus(t, `{"Interval": 1000000, "Threads": 2}`)

	var matchCount, otherCount atomic.Int32
	subMatch := b.SubAlloc(nil, func(self any, topic string, payload Value) { matchCount.Add(1) }, "a/b")
	subOther := b.SubAlloc(nil, func(self any, topic string, payload Value) { otherCount.Add(1) }, "x/y")
	defer b.SubFree(subMatch)
	defer b.SubFree(subOther)

	pub := b.PubAlloc(nil, nil, "a/b")
	defer b.PubFree(pub)

	b.Publish(pub, NewMapValue(), true)

	if matchCount.Load() != 1 {
		t.Errorf("matching subscriber invoked %d times, want 1", matchCount.Load())
	}
	if otherCount.Load() != 0 {
		t.Errorf("non-matching subscriber invoked %d times, want 0", otherCount.Load())
	}
}

func TestBusProducerCadence(t *testing.T) {
	b := testNewBus(t, `{"Interval": 10000000, "Threads": 2}`)

	var count atomic.Int32
	sub := b.SubAlloc(nil, func(self any, topic string, payload Value) { count.Add(1) }, "producer/topic")
	defer b.SubFree(sub)

	pub := b.PubAlloc(nil, func(self any) Value {
		return NewMapValue()
	}, "producer/topic")
	defer b.PubFree(pub)

	time.Sleep(150 * time.Millisecond)

	if got := count.Load(); got < 5 {
		t.Errorf("producer callback drove %d publications in 150ms at a 10ms interval, want >= 5", got)
	}
}

func TestBusPublishAsyncPostsToPool(t *testing.T) {
	b := testNewBus(t, `{"Interval": 1000000, "Threads": 2}`)

	var wg sync.WaitGroup
	wg.Add(1)
	sub := b.SubAlloc(nil, func(self any, topic string, payload Value) { wg.Done() }, "async/topic")
	defer b.SubFree(sub)

	pub := b.PubAlloc(nil, nil, "async/topic")
	defer b.PubFree(pub)

	b.Publish(pub, NewMapValue(), false)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async delivery never reached subscriber")
	}
}
