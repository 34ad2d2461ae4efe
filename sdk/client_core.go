package sdk

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/internal/reader"
)

// Client drives one LLRP reader through its inventory lifecycle and turns
// its tag reports into ReadEvents.
type Client struct {
	transport *reader.Client
	cfg       ReaderConfig
	timeout   time.Duration
	log       *log.Entry

	// lifecycle serializes StartReader, StopReader, Pause and Resume.
	lifecycle sync.Mutex

	mu    sync.RWMutex
	state State

	dispatch     *Dispatcher
	drainTimeout time.Duration
	decodeErrs   atomic.Uint64

	statuses chan StatusEvent
	errs     chan error
}

type Option func(*Client)

// WithTransactTimeout overrides reader.DefaultTransactTimeout.
func WithTransactTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDispatchBuffer sizes the queue between the connection and handlers.
func WithDispatchBuffer(n int) Option {
	return func(c *Client) {
		c.dispatch = NewDispatcher(n, c.log)
	}
}

// WithDrainTimeout bounds how long StopReader waits for busy handlers.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.drainTimeout = d
	}
}

func NewClient(cfg ReaderConfig, opts ...Option) *Client {
	entry := log.WithFields(log.Fields{"Reader": cfg.Endpoint.Address()})
	c := &Client{
		transport: reader.NewClient(),
		cfg:       cloneReaderConfig(cfg),
		timeout:   reader.DefaultTransactTimeout,
		log:       entry,
		dispatch:  NewDispatcher(DefaultDispatchBuffer, entry),
		statuses:  make(chan StatusEvent, 256),
		errs:      make(chan error, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dispatch.SetDrainTimeout(c.drainTimeout)
	c.transport.OnInbound(c.onInbound)
	return c
}

func (c *Client) AddHandler(h Handler) {
	c.dispatch.Add(h)
}

func (c *Client) Statuses() <-chan StatusEvent {
	return c.statuses
}

// Errors carries asynchronous problems: device error notifications, dropped
// report entries and BestEffortTeardown failures.
func (c *Client) Errors() <-chan error {
	return c.errs
}

func (c *Client) Endpoint() Endpoint {
	return c.cfg.Endpoint
}

func (c *Client) Config() ReaderConfig {
	return cloneReaderConfig(c.cfg)
}

func (c *Client) IsConnected() bool {
	return c.transport.IsConnected()
}

// State is Idle whenever the session is gone, whatever step it was in.
func (c *Client) State() State {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()
	if state != StateIdle && !c.transport.IsConnected() {
		return StateIdle
	}
	return state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.log.WithFields(log.Fields{
			"Method": "setState",
			"From":   prev.String(),
			"To":     s.String(),
		}).Debug("lifecycle transition")
	}
}

func (c *Client) Stats() Stats {
	return Stats{
		State:        c.State(),
		SessionID:    c.transport.SessionID(),
		Reads:        c.dispatch.Delivered(),
		Dropped:      c.dispatch.Dropped(),
		DecodeErrors: c.decodeErrs.Load(),
		LastTagEPC:   c.dispatch.LastEPC(),
	}
}

var _ Reader = (*Client)(nil)
