package sdk

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Handler observes read events. A returned error is logged and does not
// stop delivery to other handlers.
type Handler interface {
	HandleRead(ReadEvent) error
}

type HandlerFunc func(ReadEvent) error

func (f HandlerFunc) HandleRead(ev ReadEvent) error {
	return f(ev)
}

// DefaultDispatchBuffer is the number of read events queued between the
// connection and the handlers before new events are dropped.
const DefaultDispatchBuffer = 1024

// DefaultDrainTimeout bounds how long Stop waits for handlers to finish the
// queued events.
const DefaultDrainTimeout = 2 * time.Second

// Dispatcher fans read events out to handlers, in registration order, from a
// single goroutine so that delivery order equals arrival order. Publish never
// blocks the caller.
type Dispatcher struct {
	log *log.Entry

	hmu      sync.RWMutex
	handlers []Handler

	mu        sync.RWMutex
	queue     chan ReadEvent
	done      chan struct{}
	abandoned *atomic.Bool
	size      int
	drain     time.Duration

	delivered atomic.Uint64
	dropped   atomic.Uint64
	lastEPC   atomic.Value
}

func NewDispatcher(buffer int, entry *log.Entry) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultDispatchBuffer
	}
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	return &Dispatcher{size: buffer, log: entry, drain: DefaultDrainTimeout}
}

// SetDrainTimeout changes the Stop bound. Zero or less keeps the current value.
func (d *Dispatcher) SetDrainTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	d.mu.Lock()
	d.drain = timeout
	d.mu.Unlock()
}

func (d *Dispatcher) Add(h Handler) {
	if h == nil {
		return
	}
	d.hmu.Lock()
	d.handlers = append(d.handlers, h)
	d.hmu.Unlock()
}

// Start launches the delivery goroutine. It is a no-op while running.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue != nil {
		return
	}
	d.queue = make(chan ReadEvent, d.size)
	d.done = make(chan struct{})
	d.abandoned = new(atomic.Bool)
	go d.run(d.queue, d.done, d.abandoned)
}

// Stop delivers what is already queued and waits for the goroutine to exit,
// at most the drain timeout. After that the goroutine is left to finish the
// event in hand on its own and the rest of the queue is counted as dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	queue, done, abandoned, drain := d.queue, d.done, d.abandoned, d.drain
	d.queue, d.done, d.abandoned = nil, nil, nil
	if queue != nil {
		close(queue)
	}
	d.mu.Unlock()

	if done == nil {
		return
	}
	timer := time.NewTimer(drain)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		abandoned.Store(true)
		d.log.WithFields(log.Fields{
			"Method":  "Stop",
			"Pending": len(queue),
		}).Warn("read handlers still busy; queued events abandoned")
	}
}

// Publish queues ev. It returns false when the dispatcher is stopped or full.
func (d *Dispatcher) Publish(ev ReadEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.queue == nil {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.queue <- ev:
		return true
	default:
		d.dropped.Add(1)
		d.log.WithFields(log.Fields{
			"Method": "Publish",
			"EPC":    ev.Tag.EPC,
		}).Warn("read event dropped: dispatch queue full")
		return false
	}
}

func (d *Dispatcher) Delivered() uint64 { return d.delivered.Load() }
func (d *Dispatcher) Dropped() uint64   { return d.dropped.Load() }

func (d *Dispatcher) LastEPC() string {
	epc, _ := d.lastEPC.Load().(string)
	return epc
}

func (d *Dispatcher) run(queue <-chan ReadEvent, done chan<- struct{}, abandoned *atomic.Bool) {
	defer close(done)
	for ev := range queue {
		if abandoned.Load() {
			d.dropped.Add(1)
			continue
		}
		d.hmu.RLock()
		handlers := append([]Handler(nil), d.handlers...)
		d.hmu.RUnlock()

		for _, h := range handlers {
			if err := d.deliver(h, ev); err != nil {
				d.log.WithFields(log.Fields{
					"Method": "dispatch",
					"EPC":    ev.Tag.EPC,
					"Error":  err.Error(),
				}).Warn("read handler failed")
			}
		}
		d.delivered.Add(1)
		d.lastEPC.Store(ev.Tag.EPC)
	}
}

func (d *Dispatcher) deliver(h Handler, ev ReadEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("handler panic: %v", r)
		}
	}()
	return h.HandleRead(ev)
}
