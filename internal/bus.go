// Bus: topic-matching pub/sub with subscription patterns, scheduler-driven
// producer cadence, and synchronous or pool-posted delivery. Registers
// itself as the "bus" component type from its own init(), the same way
// Scheduler registers "sched".

package iotrt_internal

import (
	"fmt"
	"sync"
)

var busLog = NewCompLogger("bus")

const (
	busDefaultIntervalNs = uint64(1_000_000_000)
	busDefaultThreads    = 2
)

// Subscription is a registered topic matcher and its receiver callback.
type Subscription struct {
	pattern  string
	callback func(self any, topic string, payload Value)
	self     any
	bus      *Bus
}

// Publisher is a registered topic source, optionally driven by a scheduled
// producer callback.
type Publisher struct {
	topic      string
	producer   func(self any) Value
	self       any
	priority   int
	hasPrio    bool
	bus        *Bus
	producerSC *Schedule
}

// Bus is a mutex-guarded set of subscriptions and publishers, an owned
// Scheduler and ThreadPool, and the configured dispatch interval.
type Bus struct {
	mu            sync.Mutex
	subscriptions []*Subscription
	publishers    []*Publisher

	intervalNs    uint64
	topicPriority map[string]int

	scheduler *Scheduler
	pool      ThreadPool

	state ComponentState
}

// NewBus allocates an un-configured, un-started Bus.
func NewBus() *Bus {
	return &Bus{
		topicPriority: make(map[string]int),
		state:         ComponentInitialized,
	}
}

// Init parses configJSON ({Interval, Threads, Topics} shape, unknown
// keys ignored since go-json decodes into a typed struct) and wires an
// owned ThreadPool and Scheduler sized by it.
func (b *Bus) Init(configJSON []byte) error {
	type wireConfig struct {
		Interval uint64
		Threads  uint32
		Topics   []struct {
			Topic    string
			Priority int
		}
	}
	var wc wireConfig
	if len(configJSON) > 0 {
		if err := Unmarshal(configJSON, &wc); err != nil {
			return fmt.Errorf("bus: invalid configuration: %w", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.intervalNs = wc.Interval
	if b.intervalNs == 0 {
		b.intervalNs = busDefaultIntervalNs
	}
	threads := int(wc.Threads)
	if threads <= 0 {
		threads = busDefaultThreads
	}
	for _, t := range wc.Topics {
		b.topicPriority[t.Topic] = t.Priority
	}

	b.pool = NewChannelThreadPool(threads)
	b.scheduler = NewScheduler(b.pool)
	return nil
}

// Start starts the embedded pool and scheduler.
func (b *Bus) Start() bool {
	b.mu.Lock()
	pool, sched := b.pool, b.scheduler
	b.state = ComponentRunning
	b.mu.Unlock()

	if pool == nil || sched == nil {
		busLog.Error("bus: Start called before Init")
		return false
	}
	pool.Start()
	sched.Start()
	return true
}

// Stop stops the embedded scheduler (which drains in-flight dispatch via
// the pool's Wait) then the pool itself.
func (b *Bus) Stop() {
	b.mu.Lock()
	sched, pool := b.scheduler, b.pool
	b.state = ComponentStopped
	b.mu.Unlock()

	if sched != nil {
		sched.Shutdown()
	}
	if pool != nil {
		pool.Free()
	}
}

// Free releases the bus's resources. Satisfies Component.
func (b *Bus) Free() {
	b.Stop()
	b.mu.Lock()
	b.subscriptions = nil
	b.publishers = nil
	b.state = ComponentDeleted
	b.mu.Unlock()
}

// State satisfies Component.
func (b *Bus) State() ComponentState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SubAlloc registers a subscription for pattern, whose callback receives
// (self, topic, payload) on every matching publish.
func (b *Bus) SubAlloc(self any, callback func(self any, topic string, payload Value), pattern string) *Subscription {
	sub := &Subscription{pattern: pattern, callback: callback, self: self, bus: b}
	b.mu.Lock()
	b.subscriptions = append(b.subscriptions, sub)
	b.mu.Unlock()
	return sub
}

// SubFree deregisters sub. Safe to call concurrently with in-flight
// dispatch, since dispatch snapshots the subscription list under the same
// mutex before releasing it.
func (b *Bus) SubFree(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subscriptions {
		if s == sub {
			b.subscriptions = append(b.subscriptions[:i], b.subscriptions[i+1:]...)
			return
		}
	}
}

// PubAlloc registers a publisher for topic (which must be literal, no
// wildcards). If producer is non-nil, a recurring schedule is
// created on the bus's own scheduler at the configured interval that calls
// producer(self) and publishes the result (async) on topic.
func (b *Bus) PubAlloc(self any, producer func(self any) Value, topic string) *Publisher {
	b.mu.Lock()
	priority, hasPrio := b.topicPriority[topic]
	b.mu.Unlock()

	pub := &Publisher{topic: topic, producer: producer, self: self, bus: b, priority: priority, hasPrio: hasPrio}

	b.mu.Lock()
	b.publishers = append(b.publishers, pub)
	interval, sched := b.intervalNs, b.scheduler
	b.mu.Unlock()

	if producer != nil && sched != nil {
		var prio []int
		if hasPrio {
			prio = []int{priority}
		}
		sc := sched.ScheduleCreate(func(arg any) {
			p := arg.(*Publisher)
			payload := p.producer(p.self)
			if payload != nil {
				p.bus.Publish(p, payload, false)
			}
		}, pub, interval, 0, 0, prio...)
		if sc != nil {
			sched.ScheduleAdd(sc)
			pub.producerSC = sc
		}
	}
	return pub
}

// PubFree cancels any scheduled producer (waiting for in-flight dispatches
// to complete via the scheduler's pool) and deregisters pub.
func (b *Bus) PubFree(pub *Publisher) {
	b.mu.Lock()
	sched := b.scheduler
	if pub.producerSC != nil && sched != nil {
		sched.ScheduleRemove(pub.producerSC)
		sched.ScheduleDelete(pub.producerSC)
	}
	for i, p := range b.publishers {
		if p == pub {
			b.publishers = append(b.publishers[:i], b.publishers[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	if sched != nil {
		if pool := sched.ThreadPool(); pool != nil {
			pool.Wait()
		}
	}
}

// Publish dispatches payload to every subscription whose pattern matches
// pub.topic. Each matching subscriber receives a shared reference
// (AddRef'd once per subscriber); the bus's own reference is released once
// every subscriber has been notified or scheduled. If sync, delivery
// happens on the caller's goroutine, so successive publications reach each
// subscriber in publication order. Otherwise each callback is posted to
// the pool individually, in publication order; a pool with more than one
// worker may run two callbacks for the same subscriber concurrently, so
// their completion order is not guaranteed.
func (b *Bus) Publish(pub *Publisher, payload Value, sync bool) {
	b.mu.Lock()
	matches := make([]*Subscription, 0, len(b.subscriptions))
	for _, s := range b.subscriptions {
		if MatchTopic(s.pattern, pub.topic) {
			matches = append(matches, s)
		}
	}
	pool := b.pool
	b.mu.Unlock()

	for _, s := range matches {
		ref := payload.AddRef()
		if sync || pool == nil {
			deliverOne(s, pub.topic, ref)
			continue
		}
		var prio []int
		if pub.hasPrio {
			prio = []int{pub.priority}
		}
		pool.AddWork(func() { deliverOne(s, pub.topic, ref) }, prio...)
	}
	payload.Release()
}

func deliverOne(sub *Subscription, topic string, payload Value) {
	defer payload.Release()
	if sub.callback != nil {
		sub.callback(sub.self, topic, payload)
	}
}

func init() {
	RegisterComponentFactory(&ComponentFactory{
		Type: "bus",
		ConfigFn: func(cont *Container, config map[string]any) Component {
			raw, err := Marshal(config)
			if err != nil {
				busLog.Errorf("bus: could not re-marshal config map: %v", err)
				return nil
			}
			b := NewBus()
			if err := b.Init(raw); err != nil {
				busLog.Errorf("bus: %v", err)
				return nil
			}
			return b
		},
	})
}
