package reader

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/internal/protocol/llrp"
)

// DefaultTransactTimeout bounds every correlated request.
const DefaultTransactTimeout = 5000 * time.Millisecond

// Endpoint describes a reachable reader address. Port 0 means llrp.DefaultPort.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) Address() string {
	port := e.Port
	if port == 0 {
		port = llrp.DefaultPort
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

// InboundHandler receives every message that does not answer the pending
// transaction. It runs on the read goroutine, so it must not block.
type InboundHandler func(llrp.Message)

type session struct {
	id       string
	endpoint Endpoint
	conn     net.Conn
	done     chan struct{}
	closing  atomic.Bool
	writeMu  sync.Mutex
	log      *log.Entry
}

type pendingTx struct {
	id    uint32
	want  llrp.MessageType
	reply chan llrp.Message
}

// Client manages a single reader TCP session and its request/reply correlation.
type Client struct {
	mu      sync.RWMutex
	session *session
	pending *pendingTx
	inbound InboundHandler

	// txMu queues Transact callers; control traffic is half-duplex.
	txMu   sync.Mutex
	nextID atomic.Uint32
}

func NewClient() *Client {
	return &Client{}
}

// OnInbound registers the callback for unsolicited messages.
func (c *Client) OnInbound(h InboundHandler) {
	c.mu.Lock()
	c.inbound = h
	c.mu.Unlock()
}

// Connect opens the session and waits for the reader's ConnectionAttemptEvent.
// It is a no-op while a session is open.
func (c *Client) Connect(ctx context.Context, endpoint Endpoint, timeout time.Duration) error {
	if endpoint.Host == "" || endpoint.Port < 0 {
		return &ConnectionError{Endpoint: endpoint, Err: errors.New("invalid endpoint")}
	}

	c.mu.RLock()
	open := c.session != nil
	c.mu.RUnlock()
	if open {
		return nil
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint.Address())
	if err != nil {
		return &ConnectionError{Endpoint: endpoint, Err: err}
	}

	id := uuid.New().String()
	s := &session{
		id:       id,
		endpoint: endpoint,
		conn:     conn,
		done:     make(chan struct{}),
		log: log.WithFields(log.Fields{
			"Reader":  endpoint.Address(),
			"Session": id,
		}),
	}

	rd := bufio.NewReader(conn)
	if err := c.awaitConnectionAttempt(s, rd, timeout); err != nil {
		_ = conn.Close()
		return &ConnectionError{Endpoint: endpoint, Err: err}
	}

	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.session = s
	c.mu.Unlock()

	s.log.WithFields(log.Fields{
		"Method": "Connect",
		"Action": "open",
	}).Info("reader session opened")

	go c.readLoop(s, rd)
	return nil
}

func (c *Client) awaitConnectionAttempt(s *session, rd *bufio.Reader, timeout time.Duration) error {
	if timeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(timeout))
		defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()
	}
	for {
		msg, err := llrp.ReadMessage(rd)
		if err != nil {
			return errors.Wrap(err, "await connection attempt event")
		}
		switch msg.Type {
		case llrp.MsgKeepalive:
			_ = s.write(llrp.NewKeepaliveAck(msg.ID))
			continue
		case llrp.MsgReaderEventNotification:
		default:
			continue
		}

		ev, err := llrp.DecodeReaderEventNotification(msg.Body)
		if err != nil {
			return errors.Wrap(err, "decode reader event")
		}
		if ev.ConnectionAttempt == nil {
			continue
		}
		if *ev.ConnectionAttempt != llrp.ConnectionSuccess {
			return errors.Wrapf(ErrRejected, "%s", ev.ConnectionAttempt)
		}
		return nil
	}
}

func (c *Client) readLoop(s *session, rd *bufio.Reader) {
	defer func() {
		_ = s.conn.Close()
		close(s.done)

		c.mu.Lock()
		if c.session == s {
			c.session = nil
		}
		c.mu.Unlock()

		s.log.WithFields(log.Fields{
			"Method": "readLoop",
			"Action": "close",
		}).Info("reader session closed")
	}()

	for {
		msg, err := llrp.ReadMessage(rd)
		if err != nil {
			if !s.closing.Load() {
				s.log.WithFields(log.Fields{
					"Method": "readLoop",
					"Error":  err.Error(),
				}).Warn("reader connection lost")
			}
			return
		}

		if msg.Type == llrp.MsgKeepalive {
			if err := s.write(llrp.NewKeepaliveAck(msg.ID)); err != nil {
				s.log.WithField("Error", err.Error()).Debug("keepalive ack failed")
			}
			continue
		}

		if c.resolvePending(msg) {
			continue
		}

		c.mu.RLock()
		h := c.inbound
		c.mu.RUnlock()
		if h != nil {
			h(msg)
		}
	}
}

// resolvePending hands msg to the waiting Transact when it carries the
// pending request's ID and either the expected reply type or ERROR_MESSAGE.
func (c *Client) resolvePending(msg llrp.Message) bool {
	c.mu.Lock()
	p := c.pending
	if p == nil || p.id != msg.ID || (msg.Type != p.want && msg.Type != llrp.MsgErrorMessage) {
		c.mu.Unlock()
		return false
	}
	c.pending = nil
	c.mu.Unlock()

	p.reply <- msg
	return true
}

// Disconnect closes the session. Safe to call at any time; it never fails.
func (c *Client) Disconnect() {
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return
	}

	if s.closing.CompareAndSwap(false, true) {
		bye := llrp.Message{Type: llrp.MsgCloseConnection, ID: c.nextID.Add(1)}
		_ = s.conn.SetWriteDeadline(time.Now().Add(500 * time.Millisecond))
		_ = s.write(bye)
		_ = s.conn.Close()
	}

	select {
	case <-s.done:
	case <-time.After(1200 * time.Millisecond):
	}
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

func (c *Client) Endpoint() (Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Endpoint{}, false
	}
	return c.session.endpoint, true
}

// SessionID is the uuid assigned to the open session, empty when disconnected.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.id
}

// Send writes msg without waiting for a reply. A zero ID is replaced with a
// fresh one; the ID actually sent is returned.
func (c *Client) Send(msg llrp.Message) (uint32, error) {
	s := c.current()
	if s == nil {
		return 0, ErrNotConnected
	}
	if msg.ID == 0 {
		msg.ID = c.nextID.Add(1)
	}
	if err := s.write(msg); err != nil {
		return 0, errors.Wrapf(err, "send %s", msg.Type)
	}
	return msg.ID, nil
}

// Transact sends req and waits for its correlated reply. Concurrent callers
// are queued. A reply carrying a non-success LLRPStatus is returned together
// with a *StatusError.
func (c *Client) Transact(req llrp.Message, timeout time.Duration) (llrp.Message, error) {
	want, ok := llrp.ResponseType(req.Type)
	if !ok {
		return llrp.Message{}, errors.Errorf("%s has no correlated reply", req.Type)
	}
	if timeout <= 0 {
		timeout = DefaultTransactTimeout
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	s := c.current()
	if s == nil {
		return llrp.Message{}, ErrNotConnected
	}

	req.ID = c.nextID.Add(1)
	p := &pendingTx{id: req.ID, want: want, reply: make(chan llrp.Message, 1)}
	c.setPending(p)

	if err := s.write(req); err != nil {
		c.clearPending(p)
		return llrp.Message{}, errors.Wrapf(err, "send %s", req.Type)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-p.reply:
		return reply, replyStatus(req.Type, reply)
	case <-timer.C:
		c.clearPending(p)
		return llrp.Message{}, errors.Wrapf(ErrTransactionTimeout, "%s after %s", req.Type, timeout)
	case <-s.done:
		c.clearPending(p)
		return llrp.Message{}, errors.Wrapf(ErrNotConnected, "%s: connection closed", req.Type)
	}
}

func replyStatus(reqType llrp.MessageType, reply llrp.Message) error {
	st, err := llrp.DecodeStatus(reply.Body)
	if err != nil {
		return &DecodeError{What: reply.Type.String(), Err: err}
	}
	if !st.OK() || reply.Type == llrp.MsgErrorMessage {
		return &StatusError{Request: reqType, Code: st.Code, Description: st.Description}
	}
	return nil
}

func (c *Client) current() *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) setPending(p *pendingTx) {
	c.mu.Lock()
	c.pending = p
	c.mu.Unlock()
}

func (c *Client) clearPending(p *pendingTx) {
	c.mu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.mu.Unlock()
}

func (s *session) write(msg llrp.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.Write(msg.Encode())
	return err
}
