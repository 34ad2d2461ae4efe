// Package simulator is an in-process LLRP reader. It answers the control
// subset used by this module, records every request and can push tag
// reports, which makes it usable both from tests and as a bench stand-in
// for real hardware.
package simulator

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/internal/protocol/llrp"
)

type Option func(*Reader)

// WithConnectionStatus sets the ConnectionAttemptEvent status sent on accept.
func WithConnectionStatus(status llrp.ConnectionAttemptStatus) Option {
	return func(r *Reader) { r.attempt = status }
}

// WithoutGreeting suppresses the ConnectionAttemptEvent entirely.
func WithoutGreeting() Option {
	return func(r *Reader) { r.greet = false }
}

// DropFirst ignores the first n requests of type t.
func DropFirst(t llrp.MessageType, n int) Option {
	return func(r *Reader) { r.drop[t] = n }
}

// RespondWith answers every request of type t with st instead of Success.
func RespondWith(t llrp.MessageType, st llrp.Status) Option {
	return func(r *Reader) { r.status[t] = st }
}

// FailWith answers every request of type t with an ERROR_MESSAGE carrying st.
func FailWith(t llrp.MessageType, st llrp.Status) Option {
	return func(r *Reader) { r.fail[t] = st }
}

// WithAutoReport makes the reader emit one report per interval while its
// ROSpec is started, cycling through epcs on the given antenna.
func WithAutoReport(interval time.Duration, antenna uint16, epcs ...[]byte) Option {
	return func(r *Reader) {
		r.autoEvery = interval
		r.autoAntenna = antenna
		r.autoEPCs = epcs
	}
}

// Reader accepts LLRP client sessions on a TCP listener.
type Reader struct {
	ln net.Listener

	attempt     llrp.ConnectionAttemptStatus
	greet       bool
	drop        map[llrp.MessageType]int
	status      map[llrp.MessageType]llrp.Status
	fail        map[llrp.MessageType]llrp.Status
	autoEvery   time.Duration
	autoAntenna uint16
	autoEPCs    [][]byte

	mu       sync.Mutex
	requests []llrp.Message
	conns    map[net.Conn]*sync.Mutex
	accepted int
	running  bool
	notify   chan struct{}

	nextID uint32
	done   chan struct{}
	wg     sync.WaitGroup
}

// Listen starts a simulated reader on addr ("127.0.0.1:0" picks a free port).
func Listen(addr string, opts ...Option) (*Reader, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	r := &Reader{
		ln:     ln,
		greet:  true,
		drop:   make(map[llrp.MessageType]int),
		status: make(map[llrp.MessageType]llrp.Status),
		fail:   make(map[llrp.MessageType]llrp.Status),
		conns:  make(map[net.Conn]*sync.Mutex),
		notify: make(chan struct{}, 1),
		nextID: 1 << 24,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.acceptLoop()
	if r.autoEvery > 0 && len(r.autoEPCs) > 0 {
		r.wg.Add(1)
		go r.autoReportLoop()
	}
	return r, nil
}

// Host and Port of the listener.
func (r *Reader) Host() string {
	host, _, _ := net.SplitHostPort(r.ln.Addr().String())
	return host
}

func (r *Reader) Port() int {
	_, port, _ := net.SplitHostPort(r.ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

func (r *Reader) Close() error {
	select {
	case <-r.done:
		return nil
	default:
	}
	close(r.done)
	err := r.ln.Close()

	r.mu.Lock()
	for conn := range r.conns {
		_ = conn.Close()
	}
	r.mu.Unlock()

	r.wg.Wait()
	return err
}

// Kick drops every open session without closing the listener, the way a
// rebooting reader does.
func (r *Reader) Kick() {
	r.mu.Lock()
	for conn := range r.conns {
		_ = conn.Close()
	}
	r.running = false
	r.mu.Unlock()
}

// Requests returns a copy of every message received so far, in arrival order.
func (r *Reader) Requests() []llrp.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]llrp.Message(nil), r.requests...)
}

// RequestTypes is Requests reduced to message types.
func (r *Reader) RequestTypes() []llrp.MessageType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]llrp.MessageType, 0, len(r.requests))
	for _, m := range r.requests {
		out = append(out, m.Type)
	}
	return out
}

// Accepted is the number of TCP sessions accepted so far.
func (r *Reader) Accepted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepted
}

// Running reports whether the ROSpec has been started and not stopped.
func (r *Reader) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// WaitFor blocks until a request of type t has been received or ctx ends.
func (r *Reader) WaitFor(ctx context.Context, t llrp.MessageType) bool {
	for {
		for _, got := range r.RequestTypes() {
			if got == t {
				return true
			}
		}
		select {
		case <-r.notify:
		case <-ctx.Done():
			return false
		}
	}
}

// Push writes msg to every open session.
func (r *Reader) Push(msg llrp.Message) {
	r.mu.Lock()
	if msg.ID == 0 {
		r.nextID++
		msg.ID = r.nextID
	}
	targets := make(map[net.Conn]*sync.Mutex, len(r.conns))
	for conn, mu := range r.conns {
		targets[conn] = mu
	}
	r.mu.Unlock()

	raw := msg.Encode()
	for conn, mu := range targets {
		mu.Lock()
		_, _ = conn.Write(raw)
		mu.Unlock()
	}
}

// PushReport sends one RO_ACCESS_REPORT carrying tags.
func (r *Reader) PushReport(tags ...llrp.TagReportData) {
	r.Push(llrp.NewROAccessReport(tags))
}

func (r *Reader) acceptLoop() {
	defer r.wg.Done()
	for {
		conn, err := r.ln.Accept()
		if err != nil {
			return
		}
		r.mu.Lock()
		r.conns[conn] = &sync.Mutex{}
		r.accepted++
		r.mu.Unlock()

		r.wg.Add(1)
		go r.serve(conn)
	}
}

func (r *Reader) serve(conn net.Conn) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.conns, conn)
		r.mu.Unlock()
		_ = conn.Close()
	}()

	entry := log.WithFields(log.Fields{"Method": "simulator.serve", "Client": conn.RemoteAddr().String()})
	if r.greet {
		r.write(conn, llrp.NewConnectionAttemptEvent(r.attempt))
		if r.attempt != llrp.ConnectionSuccess {
			return
		}
	}

	rd := bufio.NewReader(conn)
	for {
		msg, err := llrp.ReadMessage(rd)
		if err != nil {
			entry.WithField("Error", err.Error()).Debug("client session ended")
			return
		}
		r.record(msg)

		if msg.Type == llrp.MsgKeepaliveAck {
			continue
		}
		if r.shouldDrop(msg.Type) {
			continue
		}

		if st, ok := r.failureFor(msg.Type); ok {
			r.write(conn, llrp.NewStatusResponse(llrp.MsgErrorMessage, msg.ID, st))
			continue
		}

		want, ok := llrp.ResponseType(msg.Type)
		if !ok {
			r.write(conn, llrp.NewStatusResponse(llrp.MsgErrorMessage, msg.ID, llrp.Status{
				Code:        llrp.StatusUnsupportedMessage,
				Description: msg.Type.String() + " not supported",
			}))
			continue
		}

		st := r.statusFor(msg.Type)
		if st.OK() {
			r.apply(msg.Type)
		}
		r.write(conn, llrp.NewStatusResponse(want, msg.ID, st))
		if msg.Type == llrp.MsgCloseConnection {
			return
		}
	}
}

func (r *Reader) apply(t llrp.MessageType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch t {
	case llrp.MsgStartROSpec:
		r.running = true
	case llrp.MsgStopROSpec, llrp.MsgDeleteROSpec, llrp.MsgDisableROSpec:
		r.running = false
	}
}

func (r *Reader) record(msg llrp.Message) {
	r.mu.Lock()
	r.requests = append(r.requests, msg)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Reader) shouldDrop(t llrp.MessageType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drop[t] > 0 {
		r.drop[t]--
		return true
	}
	return false
}

func (r *Reader) statusFor(t llrp.MessageType) llrp.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status[t]
}

func (r *Reader) failureFor(t llrp.MessageType) (llrp.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.fail[t]
	return st, ok
}

func (r *Reader) write(conn net.Conn, msg llrp.Message) {
	r.mu.Lock()
	mu := r.conns[conn]
	r.mu.Unlock()
	if mu == nil {
		return
	}
	mu.Lock()
	_, _ = conn.Write(msg.Encode())
	mu.Unlock()
}

func (r *Reader) autoReportLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.autoEvery)
	defer ticker.Stop()

	next := 0
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
		}
		if !r.Running() {
			continue
		}
		r.PushReport(llrp.TagReportData{
			EPC:          r.autoEPCs[next%len(r.autoEPCs)],
			AntennaID:    r.autoAntenna,
			HasAntennaID: r.autoAntenna != 0,
		})
		next++
	}
}
