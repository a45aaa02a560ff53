// Scheduler: one dispatcher goroutine per Scheduler that sleeps until the
// earliest due schedule, hands its function to the thread pool, reschedules
// it, and honors add/remove/delete. Backed by the sorted doubly-linked
// queue in schedqueue.go rather than a heap, so that schedules due at the
// same instant fire in FIFO order.

package iotrt_internal

import (
	"sync"
	"sync/atomic"
	"time"
)

var schedulerLog = NewCompLogger("scheduler")

// Scheduler owns a dispatcher goroutine, the active/idle schedule queues,
// and a reference to the external thread pool that actually runs user work.
type Scheduler struct {
	mu     sync.Mutex
	active scheduleQueue
	idle   scheduleQueue

	running bool
	wakeCh  chan struct{}
	doneCh  chan struct{}

	refs atomic.Int32

	pool ThreadPool
	now  func() time.Time

	state ComponentState
}

// NewScheduler creates an idle scheduler with refcount 1. The thread pool is
// an external collaborator and is not started by the scheduler; callers are
// expected to start it before Start, and stop it after Shutdown.
func NewScheduler(pool ThreadPool) *Scheduler {
	s := &Scheduler{
		pool:   pool,
		wakeCh: make(chan struct{}, 1),
		now:    time.Now,
	}
	s.refs.Store(1)
	return s
}

// AddRef increments the reference count and returns the receiver.
func (s *Scheduler) AddRef() *Scheduler {
	s.refs.Add(1)
	return s
}

// Release decrements the reference count; at zero it stops the dispatcher
// (if still running) and releases the scheduler's resources.
func (s *Scheduler) Release() {
	if s.refs.Add(-1) == 0 {
		s.Shutdown()
	}
}

func nowNs(now time.Time) uint64 {
	return uint64(now.UnixNano())
}

// Start spawns the dispatcher goroutine; idempotent once running. Returns
// true, satisfying Component (a Scheduler has no failure mode on start).
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return true
	}
	s.running = true
	s.doneCh = make(chan struct{})
	s.state = ComponentRunning
	s.mu.Unlock()

	schedulerLog.Info("start scheduler")
	go s.dispatcherLoop(s.doneCh)
	return true
}

// Shutdown clears running, wakes the dispatcher, waits for thread-pool
// quiescence and joins the dispatcher goroutine. Idempotent.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.doneCh
	s.mu.Unlock()

	schedulerLog.Info("stop scheduler")
	s.signalWake()
	<-done
	if s.pool != nil {
		s.pool.Wait()
	}
	s.mu.Lock()
	s.state = ComponentStopped
	s.mu.Unlock()
	schedulerLog.Info("scheduler stopped")
}

// Free satisfies Component: it shuts the scheduler down (idempotent) and
// marks it deleted.
func (s *Scheduler) Free() {
	s.Shutdown()
	s.mu.Lock()
	s.state = ComponentDeleted
	s.mu.Unlock()
}

// State satisfies Component.
func (s *Scheduler) State() ComponentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) signalWake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// ScheduleCreate creates a new, idle schedule. periodNs must be > 0.
// startNs is the absolute firing time; 0 means "fire immediately on Add".
// repeat is 0 (infinite) or N (fire exactly N times).
func (s *Scheduler) ScheduleCreate(fn func(arg any), arg any, periodNs uint64, startNs uint64, repeat uint64, priority ...int) *Schedule {
	if periodNs == 0 {
		schedulerLog.Warn("schedule_create: period must be > 0, ignoring")
		return nil
	}
	if startNs == 0 {
		startNs = nowNs(s.now())
	}
	sc := &Schedule{
		fn:          fn,
		arg:         arg,
		periodNs:    periodNs,
		nextStartNs: startNs,
		remaining:   repeat,
		scheduler:   s,
	}
	if len(priority) > 0 {
		sc.priority = priority[0]
		sc.prioritySet = true
	}

	s.mu.Lock()
	s.idle.insert(sc)
	s.mu.Unlock()
	return sc
}

// ScheduleAdd moves s from the idle to the active queue at its current
// nextStartNs. Returns true if the state changed.
func (s *Scheduler) ScheduleAdd(sc *Schedule) bool {
	s.mu.Lock()
	changed := false
	if !sc.scheduled {
		s.idle.remove(sc)
		s.active.insert(sc)
		sc.scheduled = true
		changed = true
		becameHead := s.active.front == sc
		running := s.running
		s.mu.Unlock()
		if becameHead && running {
			s.signalWake()
		}
		return changed
	}
	s.mu.Unlock()
	return changed
}

// ScheduleRemove is the reverse of ScheduleAdd. Returns true if the state
// changed. Takes effect immediately but does not abort an already-dispatched
// job.
func (s *Scheduler) ScheduleRemove(sc *Schedule) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !sc.scheduled {
		return false
	}
	s.active.remove(sc)
	s.idle.insert(sc)
	sc.scheduled = false
	return true
}

// ScheduleDelete unlinks sc from whichever queue it is in. There is no
// further resource to free beyond queue membership in this implementation,
// since Go schedules carry no manually-managed memory.
func (s *Scheduler) ScheduleDelete(sc *Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.scheduled {
		s.active.remove(sc)
	} else {
		s.idle.remove(sc)
	}
}

// ThreadPool returns the thread pool backing this scheduler.
func (s *Scheduler) ThreadPool() ThreadPool {
	return s.pool
}

// dispatcherLoop holds the mutex only while manipulating queues; it sleeps
// on a timer set to the active queue's head deadline (or now+1s if empty)
// and wakes early on any state-changing call via wakeCh.
func (s *Scheduler) dispatcherLoop(done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return
		}

		var deadline time.Time
		s.mu.Lock()
		if s.active.length > 0 {
			deadline = time.Unix(0, int64(s.active.front.nextStartNs))
		} else {
			deadline = s.now().Add(time.Second)
		}
		s.mu.Unlock()

		timer.Reset(time.Until(deadline))

		select {
		case <-s.wakeCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			continue
		case <-timer.C:
			s.fireHead()
		}
	}
}

// fireHead pops the active queue's front schedule (if any), posts its
// function to the thread pool and re-queues it per the repeat/period
// algorithm.
func (s *Scheduler) fireHead() {
	s.mu.Lock()
	if s.active.length == 0 {
		s.mu.Unlock()
		return
	}
	sc := s.active.front
	s.active.remove(sc)
	s.mu.Unlock()

	fn, arg := sc.fn, sc.arg
	var priority []int
	if sc.prioritySet {
		priority = []int{sc.priority}
	}
	if s.pool != nil && fn != nil {
		if !s.pool.AddWork(func() { fn(arg) }, priority...) {
			schedulerLog.Warnf("schedule %p: pool rejected work, re-queuing anyway", sc)
		}
	}

	now := nowNs(s.now())
	sc.nextStartNs = now + sc.periodNs

	s.mu.Lock()
	if sc.remaining != 0 {
		sc.remaining--
		if sc.remaining == 0 {
			sc.scheduled = false
			s.idle.insert(sc)
			s.mu.Unlock()
			return
		}
	}
	s.active.insert(sc)
	s.mu.Unlock()
}

// schedConfig is the shape of a "sched"-typed component's own configuration:
// just its thread-pool size, defaulting to the host's available CPU count
// the same way ChannelThreadPool does when Threads is 0 or absent.
type schedConfig struct {
	Threads int
}

func init() {
	RegisterComponentFactory(&ComponentFactory{
		Type: "sched",
		ConfigFn: func(cont *Container, config map[string]any) Component {
			var cfg schedConfig
			if err := DecodeInto(config, &cfg); err != nil {
				schedulerLog.Errorf("sched: invalid configuration: %v", err)
				return nil
			}
			pool := NewChannelThreadPool(cfg.Threads)
			return NewScheduler(pool)
		},
	})
}
