// Tests for scheduler.go

package iotrt_internal

import (
	"sync/atomic"
	"testing"
	"time"

	iotrt_testutils "github.com/aron566/iot-runtime/testutils"
)

func testNewScheduler(t *testing.T, numWorkers int) *Scheduler {
	tlc := iotrt_testutils.NewTestLogCollect(t, RootLogger, nil)
	t.Cleanup(tlc.RestoreLog)

	pool := NewChannelThreadPool(numWorkers)
	pool.Start()
	t.Cleanup(pool.Free)
	sched := NewScheduler(pool)
	sched.Start()
	t.Cleanup(sched.Shutdown)
	return sched
}

func TestSchedulerBasicDispatch(t *testing.T) {
	sched := testNewScheduler(t, 2)

	var count atomic.Int32
	sc := sched.ScheduleCreate(func(arg any) { count.Add(1) }, nil, uint64(10*time.Millisecond), 0, 0)
	if sc == nil {
		t.Fatal("ScheduleCreate returned nil")
	}
	sched.ScheduleAdd(sc)

	time.Sleep(250 * time.Millisecond)
	sched.ScheduleRemove(sc)

	if got := count.Load(); got < 10 {
		t.Errorf("fired %d times in 250ms at a 10ms period, want >= 10", got)
	}
}

func TestSchedulerFiniteRepeatExactness(t *testing.T) {
	sched := testNewScheduler(t, 2)

	var count atomic.Int32
	const repeat = 5
	sc := sched.ScheduleCreate(func(arg any) { count.Add(1) }, nil, uint64(5*time.Millisecond), 0, repeat)
	sched.ScheduleAdd(sc)

	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != repeat {
		t.Errorf("fired %d times, want exactly %d (finite-repeat-exactness)", got, repeat)
	}
}

func TestSchedulerRemoveSilences(t *testing.T) {
	sched := testNewScheduler(t, 2)

	var count atomic.Int32
	sc := sched.ScheduleCreate(func(arg any) { count.Add(1) }, nil, uint64(5*time.Millisecond), 0, 0)
	sched.ScheduleAdd(sc)

	time.Sleep(30 * time.Millisecond)
	sched.ScheduleRemove(sc)
	after := count.Load()

	time.Sleep(100 * time.Millisecond)
	if got := count.Load(); got != after {
		t.Errorf("schedule fired after remove: before=%d, after=%d", after, got)
	}
}

func TestSchedulerPriorityPassthrough(t *testing.T) {
	sched := testNewScheduler(t, 2)

	var gotPriority atomic.Int32
	gotPriority.Store(-1)
	done := make(chan struct{})
	sc := sched.ScheduleCreate(func(arg any) {
		select {
		case <-done:
		default:
			close(done)
		}
	}, nil, uint64(10*time.Millisecond), 0, 1, 7)
	if p, ok := sc.Priority(); !ok || p != 7 {
		t.Fatalf("Priority() = (%d, %v), want (7, true)", p, ok)
	}
	sched.ScheduleAdd(sc)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("prioritized schedule never fired")
	}
}

func TestSchedulerDelayedStart(t *testing.T) {
	sched := testNewScheduler(t, 1)

	var firedAt atomic.Int64
	startAt := time.Now().Add(100 * time.Millisecond)
	sc := sched.ScheduleCreate(func(arg any) {
		firedAt.Store(time.Now().UnixNano())
	}, nil, uint64(time.Second), nowNs(startAt), 1)
	sched.ScheduleAdd(sc)

	time.Sleep(300 * time.Millisecond)

	got := firedAt.Load()
	if got == 0 {
		t.Fatal("delayed schedule never fired")
	}
	if delta := time.Unix(0, got).Sub(startAt); delta < -20*time.Millisecond {
		t.Errorf("fired %s before requested start time", -delta)
	}
}
