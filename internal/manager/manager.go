// Package manager supervises one reader: it starts it, watches it, and
// restarts it with a growing delay whenever the session is lost.
package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/sdk"
)

const (
	DefaultRetryDelay    = 2 * time.Second
	DefaultMaxRetryDelay = 30 * time.Second
	DefaultCheckInterval = 500 * time.Millisecond
)

// Notifier receives human-readable lifecycle messages.
type Notifier func(text string)

type Status struct {
	Running      bool
	State        sdk.State
	Endpoint     string
	SessionID    string
	LastError    string
	Reads        uint64
	Dropped      uint64
	DecodeErrors uint64
	LastTagEPC   string
	LastTagAt    time.Time
	LastStartAt  time.Time
	RestartCount uint64
}

type Option func(*Manager)

// WithRetry sets the first restart delay and the ceiling it grows to.
func WithRetry(initial, max time.Duration) Option {
	return func(m *Manager) {
		if initial > 0 {
			m.retryDelay = initial
		}
		if max >= m.retryDelay {
			m.maxRetryDelay = max
		}
	}
}

func WithCheckInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.checkInterval = d
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifyFn = n }
}

type Manager struct {
	reader        sdk.Reader
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	checkInterval time.Duration
	log           *log.Entry

	mu       sync.Mutex
	notifyFn Notifier
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	status   Status
}

func New(r sdk.Reader, opts ...Option) *Manager {
	m := &Manager{
		reader:        r,
		retryDelay:    DefaultRetryDelay,
		maxRetryDelay: DefaultMaxRetryDelay,
		checkInterval: DefaultCheckInterval,
		log:           log.WithField("Reader", r.Endpoint().String()),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.status.Endpoint = r.Endpoint().String()
	r.AddHandler(sdk.HandlerFunc(m.recordRead))
	return m
}

func (m *Manager) SetNotifier(notify Notifier) {
	m.mu.Lock()
	m.notifyFn = notify
	m.mu.Unlock()
}

// Start launches the supervision loop. Calling it while running is a no-op.
func (m *Manager) Start(parent context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(parent)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	m.status.Running = true
	m.status.LastError = ""
	done := m.done
	m.mu.Unlock()

	go m.superviseLoop(ctx, done)
	return nil
}

// Stop ends supervision and stops the reader. It blocks until the reader
// has been torn down.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Status merges the supervisor view with the reader's own counters.
func (m *Manager) Status() Status {
	stats := m.reader.Stats()
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status
	st.State = stats.State
	st.SessionID = stats.SessionID
	st.Reads = stats.Reads
	st.Dropped = stats.Dropped
	st.DecodeErrors = stats.DecodeErrors
	if stats.LastTagEPC != "" {
		st.LastTagEPC = stats.LastTagEPC
	}
	return st
}

func (m *Manager) StatusText() string {
	st := m.Status()
	return fmt.Sprintf(
		"running=%v state=%s endpoint=%s session=%s\nreads=%d dropped=%d decode_errors=%d last_tag=%s at=%s\nrestarts=%d last_error=%s",
		st.Running,
		st.State,
		fallback(st.Endpoint, "-"),
		fallback(st.SessionID, "-"),
		st.Reads,
		st.Dropped,
		st.DecodeErrors,
		fallback(trimEPC(st.LastTagEPC), "-"),
		formatTime(st.LastTagAt),
		st.RestartCount,
		fallback(st.LastError, "-"),
	)
}

func (m *Manager) superviseLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.finishStopped()
	defer m.reader.StopReader()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = m.retryDelay
	retry.MaxInterval = m.maxRetryDelay
	retry.MaxElapsedTime = 0
	retry.Reset()

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if attempt > 0 {
			m.mu.Lock()
			m.status.RestartCount++
			m.mu.Unlock()
		}

		if err := m.reader.StartReader(ctx); err != nil {
			m.setError(err)
			m.log.WithFields(log.Fields{
				"Method": "superviseLoop",
				"Action": "StartReader",
				"Error":  err.Error(),
			}).Warn("reader start failed")
			// leave nothing half-configured before the next attempt
			m.reader.StopReader()
			if !sleepWithContext(ctx, retry.NextBackOff()) {
				return
			}
			continue
		}

		retry.Reset()
		m.mu.Lock()
		m.status.LastStartAt = time.Now()
		m.status.LastError = ""
		m.mu.Unlock()
		m.notify("reader running: " + m.reader.Endpoint().String())

		if !m.watch(ctx) {
			return
		}
		m.reader.StopReader()
		m.notify("reader lost: " + m.reader.Endpoint().String())
		if !sleepWithContext(ctx, retry.NextBackOff()) {
			return
		}
	}
}

// watch drains the reader's channels until ctx ends (false) or the reader
// leaves its running states (true, restart wanted).
func (m *Manager) watch(ctx context.Context) bool {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case ev := <-m.reader.Statuses():
			m.log.WithField("Method", "watch").Debug(ev.Message)
			m.notify(ev.Message)
		case err := <-m.reader.Errors():
			m.setError(err)
			m.notify("reader error: " + err.Error())
		case <-ticker.C:
			switch m.reader.State() {
			case sdk.StateRunning, sdk.StateStopped:
			default:
				m.setError(sdk.ErrNotConnected)
				m.log.WithField("Method", "watch").Warn("reader session lost, restarting")
				return true
			}
		}
	}
}

func (m *Manager) recordRead(ev sdk.ReadEvent) error {
	m.mu.Lock()
	m.status.LastTagEPC = ev.Tag.EPC
	m.status.LastTagAt = ev.When
	m.mu.Unlock()
	return nil
}

func (m *Manager) setError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.status.LastError = err.Error()
	m.mu.Unlock()
}

func (m *Manager) finishStopped() {
	m.mu.Lock()
	m.running = false
	m.cancel = nil
	m.done = nil
	m.status.Running = false
	m.mu.Unlock()
	m.notify("reader stopped: " + m.reader.Endpoint().String())
}

func (m *Manager) notify(text string) {
	text = strings.TrimSpace(text)
	m.mu.Lock()
	fn := m.notifyFn
	m.mu.Unlock()
	if text == "" || fn == nil {
		return
	}
	fn(text)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func trimEPC(epc string) string {
	if len(epc) <= 24 {
		return epc
	}
	return epc[:24] + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
