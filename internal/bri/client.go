// Package bri drives readers that speak the line-oriented Basic Reader
// Interface instead of LLRP. It implements sdk.Reader, so the rest of the
// module treats both backends the same way.
package bri

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/sdk"
)

const (
	DefaultPort           = 2189
	DefaultCommandTimeout = 5000 * time.Millisecond

	promptOK = "OK>"
	errorTag = "ERR"
)

var ErrCommandFailed = errors.New("bri command failed")

type Option func(*Client)

// WithFields sets the READ field list. ANT is what fills Tag.Antenna.
func WithFields(fields ...Field) Option {
	return func(c *Client) { c.fields = append([]Field(nil), fields...) }
}

func WithCommandTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

type session struct {
	id      string
	conn    net.Conn
	replies chan []string
	done    chan struct{}
}

// Client runs one continuous READ on a BRI reader.
type Client struct {
	cfg     sdk.ReaderConfig
	fields  []Field
	timeout time.Duration
	log     *log.Entry

	lifecycle sync.Mutex
	cmdMu     sync.Mutex

	mu      sync.RWMutex
	session *session
	state   sdk.State

	dispatch   *sdk.Dispatcher
	decodeErrs atomic.Uint64

	statuses chan sdk.StatusEvent
	errs     chan error
}

// NewClient resolves a zero port to DefaultPort, so Endpoint reports the
// address actually dialed.
func NewClient(cfg sdk.ReaderConfig, opts ...Option) *Client {
	if cfg.Endpoint.Port == 0 {
		cfg.Endpoint.Port = DefaultPort
	}
	entry := log.WithFields(log.Fields{"Reader": cfg.Endpoint.Address(), "Protocol": sdk.ProtocolBRI})
	c := &Client{
		cfg:      cfg,
		fields:   []Field{FieldAntenna},
		timeout:  DefaultCommandTimeout,
		log:      entry,
		dispatch: sdk.NewDispatcher(sdk.DefaultDispatchBuffer, entry),
		statuses: make(chan sdk.StatusEvent, 256),
		errs:     make(chan error, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) AddHandler(h sdk.Handler)         { c.dispatch.Add(h) }
func (c *Client) Statuses() <-chan sdk.StatusEvent { return c.statuses }
func (c *Client) Errors() <-chan error             { return c.errs }
func (c *Client) Endpoint() sdk.Endpoint           { return c.cfg.Endpoint }

func (c *Client) State() sdk.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return sdk.StateIdle
	}
	return c.state
}

func (c *Client) Stats() sdk.Stats {
	c.mu.RLock()
	var id string
	if c.session != nil {
		id = c.session.id
	}
	c.mu.RUnlock()
	return sdk.Stats{
		State:        c.State(),
		SessionID:    id,
		Reads:        c.dispatch.Delivered(),
		Dropped:      c.dispatch.Dropped(),
		DecodeErrors: c.decodeErrs.Load(),
		LastTagEPC:   c.dispatch.LastEPC(),
	}
}

// StartReader selects the active antennas and starts an event-reporting READ.
func (c *Client) StartReader(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.State() == sdk.StateRunning {
		return nil
	}
	if err := c.connect(ctx); err != nil {
		return &sdk.StartupError{Step: sdk.StepConnect, Err: err}
	}
	c.dispatch.Start()

	steps := []struct {
		name string
		cmd  string
		next sdk.State
	}{
		{sdk.StepConfigure, antennasCommand(c.cfg.Antennas), sdk.StateConfigured},
		{sdk.StepStart, readCommand(c.fields), sdk.StateRunning},
	}
	for _, step := range steps {
		if _, err := c.command(step.cmd); err != nil {
			c.log.WithFields(log.Fields{
				"Method": "StartReader",
				"Action": step.name,
				"Error":  err.Error(),
			}).Error("reader startup aborted")
			return &sdk.StartupError{Step: step.name, Err: err}
		}
		c.setState(step.next)
	}
	c.emitStatus("reader running")
	return nil
}

// StopReader ends the READ and closes the connection. Never fails.
func (c *Client) StopReader() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.State() == sdk.StateRunning {
		if _, err := c.command("READ STOP"); err != nil {
			c.log.WithFields(log.Fields{
				"Method": "StopReader",
				"Action": sdk.StepStop,
				"Error":  err.Error(),
			}).Warn("teardown step failed")
			c.emitErr(&sdk.TeardownError{Step: sdk.StepStop, Err: err})
		}
	}

	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s != nil {
		_ = s.conn.Close()
		select {
		case <-s.done:
		case <-time.After(1200 * time.Millisecond):
		}
		c.emitStatus("reader stopped")
	}
	c.dispatch.Stop()
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.RLock()
	open := c.session != nil
	c.mu.RUnlock()
	if open {
		return nil
	}

	timeout := c.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = sdk.DefaultConnectTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Endpoint.Address())
	if err != nil {
		return errors.Wrapf(sdk.ErrConnection, "connect %s: %v", c.cfg.Endpoint.Address(), err)
	}

	s := &session{
		id:      uuid.New().String(),
		conn:    conn,
		replies: make(chan []string, 1),
		done:    make(chan struct{}),
	}
	c.mu.Lock()
	c.session = s
	c.state = sdk.StateConnected
	c.mu.Unlock()

	c.log.WithFields(log.Fields{
		"Method":  "connect",
		"Session": s.id,
	}).Info("reader session opened")
	c.emitStatus("connected: " + c.cfg.Endpoint.Address())

	go c.readLoop(s)
	return nil
}

func (c *Client) readLoop(s *session) {
	defer func() {
		close(s.done)
		c.mu.Lock()
		if c.session == s {
			c.session = nil
		}
		c.mu.Unlock()
		c.log.WithField("Session", s.id).Info("reader session closed")
	}()

	var reply []string
	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, eventPrefix):
			c.handleEvent(line)
		case line == promptOK:
			c.deliverReply(s, reply)
			reply = nil
		case strings.HasPrefix(line, errorTag):
			c.deliverReply(s, append(reply, line))
			reply = nil
		default:
			reply = append(reply, line)
		}
	}
}

func (c *Client) deliverReply(s *session, lines []string) {
	select {
	case s.replies <- lines:
	default:
		c.log.WithField("Method", "readLoop").Debug("unsolicited BRI reply discarded")
	}
}

// command writes one line and waits for the prompt. Response lines before
// the prompt are returned; an ERR line fails the command.
func (c *Client) command(cmd string) ([]string, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return nil, sdk.ErrNotConnected
	}

	// drop a stale reply left by a command that timed out
	select {
	case <-s.replies:
	default:
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := s.conn.Write([]byte(cmd + "\r\n")); err != nil {
		return nil, errors.Wrapf(err, "send %q", cmd)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case lines := <-s.replies:
		if n := len(lines); n > 0 && strings.HasPrefix(lines[n-1], errorTag) {
			return lines, errors.Wrapf(ErrCommandFailed, "%q: %s", cmd, lines[n-1])
		}
		return lines, nil
	case <-timer.C:
		return nil, errors.Wrapf(sdk.ErrTransactionTimeout, "%q after %s", cmd, c.timeout)
	case <-s.done:
		return nil, errors.Wrapf(sdk.ErrNotConnected, "%q: connection closed", cmd)
	}
}

func (c *Client) handleEvent(line string) {
	if !strings.HasPrefix(line, eventPrefix+tagEvent) {
		c.log.WithField("Event", line).Debug("ignoring reader event")
		return
	}
	tag, err := parseTagEvent(line, c.fields)
	if err != nil {
		c.decodeErrs.Add(1)
		c.log.WithFields(log.Fields{
			"Method": "handleEvent",
			"Error":  err.Error(),
		}).Warn("tag event dropped")
		c.emitErr(&sdk.DecodeError{What: "BRI tag event", Err: err})
		return
	}
	c.dispatch.Publish(sdk.ReadEvent{Tag: tag, Reader: c.cfg.Endpoint, When: time.Now()})
}

func (c *Client) setState(s sdk.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) emitStatus(message string) {
	select {
	case c.statuses <- sdk.StatusEvent{When: time.Now(), Message: message}:
	default:
	}
}

func (c *Client) emitErr(err error) {
	if err == nil {
		return
	}
	select {
	case c.errs <- err:
	default:
	}
}

var _ sdk.Reader = (*Client)(nil)
